// Package emulator answers +Drive requests from a local directory, so the
// client can be exercised without hardware.
package emulator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"elkdrive/internal/fsops"
	"elkdrive/internal/logging"
	"elkdrive/internal/metrics"
	"elkdrive/internal/proto"
)

// Options configures an Emulator. Zero fields take the defaults below.
type Options struct {
	DeviceID   byte
	ProductID  byte
	DeviceName string
	Build      string
	Version    string
	// Latency delays every response delivered through a Transport.
	Latency time.Duration
	Logger  *zap.Logger
}

const (
	defaultProductID = 12
	defaultName      = "Digitakt"
	defaultBuild     = "emulator"
	defaultVersion   = "1.51"
)

// supported lists the request types the emulator answers, as reported in
// the device response.
var supported = []proto.Type{
	proto.TypeDeviceRequest,
	proto.TypeVersionRequest,
	proto.TypeDirListRequest,
	proto.TypeDirCreateRequest,
	proto.TypeDirDeleteRequest,
	proto.TypeFileDeleteRequest,
	proto.TypeItemRenameRequest,
	proto.TypeSampleFileInfoRequest,
	proto.TypeFileReadOpenRequest,
	proto.TypeFileReadCloseRequest,
	proto.TypeFileReadRequest,
	proto.TypeFileWriteOpenRequest,
	proto.TypeFileWriteCloseRequest,
	proto.TypeFileWriteRequest,
}

type readHandle struct {
	f    *os.File
	size uint32
}

type writeHandle struct {
	f     *os.File
	total uint32
}

// Emulator is a +Drive device backed by a directory.
type Emulator struct {
	rootAbs string
	opts    Options
	log     *zap.Logger

	mu     sync.Mutex
	lastID uint16
	nextFD uint32
	reads  map[uint32]*readHandle
	writes map[uint32]*writeHandle
}

// New returns an emulator serving root, which must be an existing directory.
func New(root string, opts Options) (*Emulator, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	st, err := fsops.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !st.Exists || !st.IsDir {
		return nil, fmt.Errorf("emulator root %s: not a directory", root)
	}
	if opts.DeviceID == 0 {
		opts.DeviceID = proto.DefaultDeviceID
	}
	if opts.ProductID == 0 {
		opts.ProductID = defaultProductID
	}
	if opts.DeviceName == "" {
		opts.DeviceName = defaultName
	}
	if opts.Build == "" {
		opts.Build = defaultBuild
	}
	if opts.Version == "" {
		opts.Version = defaultVersion
	}
	return &Emulator{
		rootAbs: abs,
		opts:    opts,
		log:     logging.OrNop(opts.Logger),
		reads:   make(map[uint32]*readHandle),
		writes:  make(map[uint32]*writeHandle),
	}, nil
}

// Root returns the absolute directory being served.
func (e *Emulator) Root() string { return e.rootAbs }

// Handle answers one request frame. It returns nil for frames a device
// would not answer: foreign envelopes, another device id, responses and
// unknown types.
func (e *Emulator) Handle(frame []byte) []byte {
	f := proto.Parse(frame)
	if _, ok := f.Message.(proto.Unknown); ok {
		return nil
	}
	if f.DeviceID != e.opts.DeviceID || f.Message.Type().IsResponse() {
		return nil
	}
	start := time.Now()
	resp, info := e.dispatch(f.Message)
	metrics.RecordEmulatorRequest(f.Message.Type().String())
	e.log.Debug("request",
		zap.Uint16("msg_id", f.MsgID),
		zap.Stringer("type", f.Message.Type()),
		zap.String("info", info),
		zap.Duration("elapsed", time.Since(start)),
	)

	e.mu.Lock()
	e.lastID++
	if e.lastID == 0 {
		e.lastID = 1
	}
	id := e.lastID
	e.mu.Unlock()
	return proto.BuildResponse(e.opts.DeviceID, id, f.MsgID, resp)
}

// Close releases every open file handle.
func (e *Emulator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for fd, h := range e.reads {
		errs = append(errs, h.f.Close())
		delete(e.reads, fd)
	}
	for fd, h := range e.writes {
		errs = append(errs, h.f.Close())
		delete(e.writes, fd)
	}
	return errors.Join(errs...)
}

func (e *Emulator) dispatch(m proto.Message) (proto.Message, string) {
	switch req := m.(type) {
	case proto.DeviceRequest:
		return e.opDevice()
	case proto.VersionRequest:
		return proto.VersionResponse{Build: e.opts.Build, Version: e.opts.Version}, ""
	case proto.DirListRequest:
		return e.opDirList(req)
	case proto.DirCreateRequest:
		return e.opDirCreate(req)
	case proto.DirDeleteRequest:
		return e.opDirDelete(req)
	case proto.FileDeleteRequest:
		return e.opFileDelete(req)
	case proto.ItemRenameRequest:
		return e.opRename(req)
	case proto.SampleFileInfoRequest:
		return e.opSampleFileInfo(req)
	case proto.FileReadOpenRequest:
		return e.opReadOpen(req)
	case proto.FileReadRequest:
		return e.opRead(req)
	case proto.FileReadCloseRequest:
		return e.opReadClose(req)
	case proto.FileWriteOpenRequest:
		return e.opWriteOpen(req)
	case proto.FileWriteRequest:
		return e.opWrite(req)
	case proto.FileWriteCloseRequest:
		return e.opWriteClose(req)
	}
	// Parse never yields a request type outside the list above.
	return proto.Unknown{ID: byte(m.Type())}, "not supported"
}

func (e *Emulator) opDevice() (proto.Message, string) {
	ids := make([]byte, len(supported))
	for i, t := range supported {
		ids[i] = byte(t)
	}
	return proto.DeviceResponse{
		ProductID:  e.opts.ProductID,
		Messages:   ids,
		DeviceName: e.opts.DeviceName,
	}, ""
}
