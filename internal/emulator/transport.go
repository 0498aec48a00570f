package emulator

import (
	"errors"
	"sync"
	"time"
)

var ErrClosed = errors.New("emulator transport closed")

// Transport carries frames between a client and an Emulator. Responses are
// delivered on a separate goroutine, like frames arriving from a port.
type Transport struct {
	emu     *Emulator
	deliver func(frame []byte)
	latency time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Transport returns a transport handing responses to deliver.
func (e *Emulator) Transport(deliver func(frame []byte)) *Transport {
	return &Transport{emu: e, deliver: deliver, latency: e.opts.Latency}
}

// Send hands one request frame to the emulator.
func (t *Transport) Send(frame []byte) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.wg.Add(1)
	t.mu.Unlock()

	req := append([]byte(nil), frame...)
	go func() {
		defer t.wg.Done()
		resp := t.emu.Handle(req)
		if resp == nil {
			return
		}
		if t.latency > 0 {
			time.Sleep(t.latency)
		}
		t.deliver(resp)
	}()
	return nil
}

// Close stops accepting frames and waits for pending responses.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
	return nil
}
