package midi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"

	"elkdrive/internal/logging"
)

// Port is an open raw MIDI device.
type Port struct {
	name string
	rw   io.ReadWriteCloser
	log  *zap.Logger
	max  int

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Open opens a raw MIDI character device such as /dev/snd/midiC1D0.
func Open(path string, log *zap.Logger) (*Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open midi port: %w", err)
	}
	return NewPort(f, path, log), nil
}

// NewPort wraps an already open byte stream.
func NewPort(rw io.ReadWriteCloser, name string, log *zap.Logger) *Port {
	return &Port{name: name, rw: rw, log: logging.OrNop(log), max: DefaultMaxFrame}
}

func (p *Port) Name() string { return p.name }

// Send writes one complete frame.
func (p *Port) Send(frame []byte) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	for len(frame) > 0 {
		n, err := p.rw.Write(frame)
		if err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
		frame = frame[n:]
	}
	return nil
}

// Run reads from the port and calls handler with every complete SysEx
// frame until ctx is cancelled or the port is closed. The port is closed
// when Run returns.
func (p *Port) Run(ctx context.Context, handler func(frame []byte)) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = p.Close()
		case <-stop:
		}
	}()
	defer p.Close()

	sp := NewSplitter(p.max)
	buf := make([]byte, 4096)
	for {
		n, err := p.rw.Read(buf)
		if n > 0 {
			for _, f := range sp.Feed(buf[:n]) {
				handler(f)
			}
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				p.log.Debug("port closed", zap.String("port", p.name), zap.Int("dropped", sp.Dropped()))
				return nil
			}
			return fmt.Errorf("read %s: %w", p.name, err)
		}
	}
}

// Close closes the underlying device. It is safe to call more than once.
func (p *Port) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.rw.Close()
	})
	return p.closeErr
}
