// Package midi moves SysEx frames over a raw MIDI byte stream.
package midi

// DefaultMaxFrame bounds a single SysEx frame. Longer frames are dropped.
const DefaultMaxFrame = 64 * 1024

const (
	sysExStart = 0xF0
	sysExEnd   = 0xF7
	realtime   = 0xF8
)

// Splitter extracts complete SysEx frames from a raw MIDI byte stream.
// Realtime bytes are dropped even inside a frame. Any other status byte
// aborts a partial frame.
type Splitter struct {
	max     int
	buf     []byte
	in      bool
	dropped int
}

func NewSplitter(max int) *Splitter {
	if max <= 0 {
		max = DefaultMaxFrame
	}
	return &Splitter{max: max}
}

// Feed consumes p and returns every frame it completed, F0 and F7 included.
func (s *Splitter) Feed(p []byte) [][]byte {
	var out [][]byte
	for _, b := range p {
		switch {
		case b >= realtime:
			continue
		case b == sysExStart:
			if s.in {
				s.dropped++
			}
			s.buf = append(s.buf[:0], b)
			s.in = true
		case b == sysExEnd:
			if !s.in {
				continue
			}
			s.buf = append(s.buf, b)
			frame := make([]byte, len(s.buf))
			copy(frame, s.buf)
			out = append(out, frame)
			s.reset()
		case b&0x80 != 0:
			if s.in {
				s.dropped++
				s.reset()
			}
		default:
			if !s.in {
				continue
			}
			if len(s.buf)+1 > s.max {
				s.dropped++
				s.reset()
				continue
			}
			s.buf = append(s.buf, b)
		}
	}
	return out
}

// Dropped is the number of partial or oversize frames discarded so far.
func (s *Splitter) Dropped() int { return s.dropped }

func (s *Splitter) reset() {
	s.buf = s.buf[:0]
	s.in = false
}
