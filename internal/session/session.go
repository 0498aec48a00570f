// Package session correlates +Drive requests with their responses. At most
// one request is in flight; a second one is refused rather than queued.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"elkdrive/internal/logging"
	"elkdrive/internal/metrics"
	"elkdrive/internal/proto"
)

// DefaultTimeout is how long a request waits for its response.
const DefaultTimeout = 5 * time.Second

var (
	ErrTransportUnavailable = errors.New("transport unavailable")
	ErrTimeout              = errors.New("request timed out")
	ErrRequestPending       = errors.New("another request is pending")
)

// Transport transmits one complete SysEx frame.
type Transport interface {
	Send(frame []byte) error
}

// Requester is the request side of a Session.
type Requester interface {
	Request(ctx context.Context, m proto.Message) (proto.Message, error)
	Connected() bool
}

// Options configures a Session.
type Options struct {
	DeviceID    byte          // zero means proto.DefaultDeviceID
	Timeout     time.Duration // zero means DefaultTimeout
	Logger      *zap.Logger
	HistorySize int
}

// Call is an in-flight or finished request.
type Call struct {
	Request  proto.Message
	MsgID    uint16
	Frame    proto.Frame   // the frame that resolved the call
	Response proto.Message // Frame.Message, nil on error
	Error    error
	Done     chan *Call

	sent     time.Time
	reqBytes int
}

func (c *Call) done() {
	select {
	case c.Done <- c:
	default:
	}
}

// Session is one logical connection to a device.
type Session struct {
	log     *zap.Logger
	history *History
	timeout time.Duration

	mu        sync.Mutex
	transport Transport
	deviceID  byte
	lastID    uint16
	pending   *Call
	timer     *time.Timer
}

// New returns a Session sending through t, which may be nil until a port is attached.
func New(t Transport, opts Options) *Session {
	if opts.DeviceID == 0 {
		opts.DeviceID = proto.DefaultDeviceID
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Session{
		log:       logging.OrNop(opts.Logger),
		history:   NewHistory(opts.HistorySize),
		timeout:   opts.Timeout,
		transport: t,
		deviceID:  opts.DeviceID,
	}
}

// SetTransport swaps the active transport. An in-flight call is left alone.
func (s *Session) SetTransport(t Transport) {
	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
	s.log.Debug("transport changed", zap.Bool("connected", t != nil))
}

// Connected reports whether a transport is attached.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport != nil
}

// DeviceID returns the id placed in outgoing envelopes.
func (s *Session) DeviceID() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// SetDeviceID changes the id used for subsequent requests.
func (s *Session) SetDeviceID(id byte) {
	s.mu.Lock()
	s.deviceID = id
	s.mu.Unlock()
}

// Pending reports whether a request is awaiting its response.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// History returns the exchange history.
func (s *Session) History() *History { return s.history }

// Go transmits m and returns its Call without waiting. It fails without
// transmitting when a request is already pending or no transport is attached.
func (s *Session) Go(m proto.Message) (*Call, error) {
	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		metrics.RecordBusy()
		return nil, ErrRequestPending
	}
	t := s.transport
	if t == nil {
		s.mu.Unlock()
		return nil, ErrTransportUnavailable
	}
	s.lastID++
	if s.lastID == 0 {
		s.lastID = 1
	}
	c := &Call{
		Request: m,
		MsgID:   s.lastID,
		Done:    make(chan *Call, 1),
		sent:    time.Now(),
	}
	frame := proto.BuildRequest(s.deviceID, c.MsgID, m)
	c.reqBytes = len(frame)
	s.pending = c
	s.timer = time.AfterFunc(s.timeout, func() { s.expire(c) })
	s.mu.Unlock()

	s.log.Debug("send",
		zap.Uint16("msg_id", c.MsgID),
		zap.Stringer("type", m.Type()),
		zap.Int("bytes", len(frame)),
	)
	metrics.RecordSent(len(frame))

	// The transport may answer synchronously, so the lock is not held here.
	if err := t.Send(frame); err != nil {
		if s.release(c) {
			err = fmt.Errorf("send %s: %w", m.Type(), err)
			s.finish(c, proto.Frame{}, err)
			return nil, err
		}
		s.log.Debug("send error after response", zap.Error(err))
	}
	return c, nil
}

// Request sends m and waits for the response. Cancelling ctx returns early
// but the slot stays taken until the response or the timeout arrives.
func (s *Session) Request(ctx context.Context, m proto.Message) (proto.Message, error) {
	c, err := s.Go(m)
	if err != nil {
		return nil, err
	}
	select {
	case <-c.Done:
		return c.Response, c.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// HandleFrame delivers one received frame. Empty frames, realtime bytes and
// anything that is not SysEx are ignored.
func (s *Session) HandleFrame(frame []byte) {
	if len(frame) == 0 || frame[0] >= 0xF8 || frame[0] != proto.SysExStart {
		return
	}
	metrics.RecordReceived(len(frame))
	f := proto.Parse(frame)

	s.mu.Lock()
	c := s.pending
	if c == nil {
		s.mu.Unlock()
		metrics.RecordUnsolicited()
		s.log.Debug("unsolicited frame",
			zap.Stringer("type", f.Message.Type()),
			zap.Uint16("msg_id", f.MsgID),
		)
		return
	}
	s.clearLocked()
	s.mu.Unlock()

	if f.RespID != c.MsgID {
		s.log.Debug("response id mismatch",
			zap.Uint16("want", c.MsgID),
			zap.Uint16("got", f.RespID),
		)
	}
	s.finishFrame(c, f, len(frame))
}

func (s *Session) expire(c *Call) {
	if !s.release(c) {
		return
	}
	s.finish(c, proto.Frame{}, ErrTimeout)
}

// release clears the slot if c still owns it.
func (s *Session) release(c *Call) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != c {
		return false
	}
	s.clearLocked()
	return true
}

func (s *Session) clearLocked() {
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) finishFrame(c *Call, f proto.Frame, n int) {
	c.Frame = f
	c.Response = f.Message
	s.record(c, n)
	c.done()
}

func (s *Session) finish(c *Call, f proto.Frame, err error) {
	c.Frame = f
	c.Error = err
	s.record(c, 0)
	c.done()
}

func (s *Session) record(c *Call, respBytes int) {
	d := time.Since(c.sent)
	outcome := metrics.OutcomeOK
	e := Exchange{
		TimeUnixMs: c.sent.UnixMilli(),
		MsgID:      c.MsgID,
		RespID:     c.Frame.RespID,
		Request:    c.Request.Type(),
		ReqBytes:   c.reqBytes,
		RespBytes:  respBytes,
		DurationMs: d.Milliseconds(),
	}
	if c.Response != nil {
		e.Response = c.Response.Type()
	}
	if c.Error != nil {
		e.Error = c.Error.Error()
		outcome = metrics.OutcomeTransport
		if errors.Is(c.Error, ErrTimeout) {
			outcome = metrics.OutcomeTimeout
		}
	}
	e.Outcome = outcome
	s.history.add(e)
	metrics.RecordExchange(e.Request.String(), outcome, d)

	if c.Error != nil {
		s.log.Debug("exchange failed",
			zap.Uint16("msg_id", c.MsgID),
			zap.Stringer("type", e.Request),
			zap.Duration("elapsed", d),
			zap.Error(c.Error),
		)
		return
	}
	s.log.Debug("exchange",
		zap.Uint16("msg_id", c.MsgID),
		zap.Stringer("type", e.Request),
		zap.Stringer("response", e.Response),
		zap.Duration("elapsed", d),
	)
}

// Do sends m through r and converts the response to T.
func Do[T proto.Message](ctx context.Context, r Requester, m proto.Message) (T, error) {
	var zero T
	resp, err := r.Request(ctx, m)
	if err != nil {
		return zero, err
	}
	return proto.Expect[T](resp)
}
