package session

import (
	"encoding/json"
	"sync"
	"time"

	"elkdrive/internal/proto"
)

// Exchange is a compact record of one request and its outcome.
type Exchange struct {
	ID         uint64     `json:"id"`
	TimeUnixMs int64      `json:"time_unix_ms"`
	MsgID      uint16     `json:"msg_id"`
	RespID     uint16     `json:"resp_id"`
	Request    proto.Type `json:"request"`
	Response   proto.Type `json:"response"`
	Outcome    string     `json:"outcome"`
	Error      string     `json:"error,omitempty"`
	ReqBytes   int        `json:"req_bytes"`
	RespBytes  int        `json:"resp_bytes"`
	DurationMs int64      `json:"duration_ms"`
}

// JSONLine renders e as one JSON object.
func (e Exchange) JSONLine() []byte {
	b, _ := json.Marshal(e)
	return b
}

// History keeps a ring buffer of recent exchanges and fans new ones out to
// subscribers.
type History struct {
	mu      sync.Mutex
	ring    []Exchange
	cap     int
	nextPos int
	count   int
	nextID  uint64
	subs    map[chan Exchange]struct{}
}

// DefaultHistorySize is the capacity used when none is given.
const DefaultHistorySize = 256

// NewHistory returns a history holding up to capacity exchanges.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		ring: make([]Exchange, capacity),
		cap:  capacity,
		subs: make(map[chan Exchange]struct{}),
	}
}

func (h *History) add(e Exchange) {
	if e.TimeUnixMs == 0 {
		e.TimeUnixMs = time.Now().UnixMilli()
	}

	h.mu.Lock()
	h.nextID++
	e.ID = h.nextID

	h.ring[h.nextPos] = e
	h.nextPos = (h.nextPos + 1) % h.cap
	if h.count < h.cap {
		h.count++
	}
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Drop if subscriber is too slow.
		}
	}
	h.mu.Unlock()
}

// Snapshot returns up to limit most recent exchanges, oldest first. A limit
// of zero returns everything held.
func (h *History) Snapshot(limit int) []Exchange {
	h.mu.Lock()
	defer h.mu.Unlock()

	if limit <= 0 || limit > h.count {
		limit = h.count
	}
	if limit == 0 {
		return nil
	}

	start := h.nextPos - h.count
	if start < 0 {
		start += h.cap
	}
	start = (start + (h.count - limit)) % h.cap

	out := make([]Exchange, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, h.ring[(start+i)%h.cap])
	}
	return out
}

// Filter selects exchanges from a History.
type Filter struct {
	OnlyErrors bool
	Limit      int
}

// Filtered returns the most recent exchanges matching f, oldest first.
func (h *History) Filtered(f Filter) []Exchange {
	all := h.Snapshot(0)
	if len(all) == 0 {
		return nil
	}
	limit := f.Limit
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}

	out := make([]Exchange, 0, limit)
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		if f.OnlyErrors && e.Error == "" {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Subscribe returns a channel receiving every new exchange until cancel is called.
func (h *History) Subscribe() (ch <-chan Exchange, cancel func()) {
	c := make(chan Exchange, 32)
	h.mu.Lock()
	h.subs[c] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return c, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, c)
			h.mu.Unlock()
			close(c)
		})
	}
}
