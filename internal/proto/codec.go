package proto

import (
	"encoding/binary"
	"fmt"
)

// Decoder reads big-endian primitives and NUL-terminated strings from a byte slice.
type Decoder struct {
	b []byte
	o int
}

func NewDecoder(b []byte) *Decoder {
	return &Decoder{b: b, o: 0}
}

func (d *Decoder) Remaining() int { return len(d.b) - d.o }

// More reports whether unread bytes remain.
func (d *Decoder) More() bool { return d.Remaining() > 0 }

func (d *Decoder) ReadU8() (byte, error) {
	if d.Remaining() < 1 {
		return 0, fmt.Errorf("need 1 byte")
	}
	v := d.b[d.o]
	d.o++
	return v, nil
}

// ReadBool reads a strict boolean byte: 0x00 or 0x01.
func (d *Decoder) ReadBool() (bool, error) {
	v, err := d.ReadU8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid boolean byte 0x%02x", v)
}

func (d *Decoder) ReadU16() (uint16, error) {
	if d.Remaining() < 2 {
		return 0, fmt.Errorf("need 2 bytes")
	}
	v := binary.BigEndian.Uint16(d.b[d.o : d.o+2])
	d.o += 2
	return v, nil
}

func (d *Decoder) ReadU32() (uint32, error) {
	if d.Remaining() < 4 {
		return 0, fmt.Errorf("need 4 bytes")
	}
	v := binary.BigEndian.Uint32(d.b[d.o : d.o+4])
	d.o += 4
	return v, nil
}

func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length")
	}
	if d.Remaining() < n {
		return nil, fmt.Errorf("need %d bytes", n)
	}
	v := d.b[d.o : d.o+n]
	d.o += n
	return v, nil
}

// ReadString reads a NUL-terminated Windows-1252 string. A string that runs to
// the end of the buffer without a terminator is accepted as is.
func (d *Decoder) ReadString() (string, error) {
	start := d.o
	for d.o < len(d.b) {
		if d.b[d.o] == 0 {
			s := DecodeText(d.b[start:d.o])
			d.o++
			return s, nil
		}
		d.o++
	}
	return DecodeText(d.b[start:]), nil
}

// Rest returns a copy of all unread bytes and consumes them.
func (d *Decoder) Rest() []byte {
	out := make([]byte, d.Remaining())
	copy(out, d.b[d.o:])
	d.o = len(d.b)
	return out
}

// Encoder builds big-endian message payloads.
type Encoder struct {
	b []byte
}

func NewEncoder(capacity int) *Encoder {
	if capacity < 0 {
		capacity = 0
	}
	return &Encoder{b: make([]byte, 0, capacity)}
}

func (e *Encoder) Bytes() []byte { return e.b }

func (e *Encoder) WriteU8(v byte) {
	e.b = append(e.b, v)
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.b = append(e.b, 1)
		return
	}
	e.b = append(e.b, 0)
}

func (e *Encoder) WriteU16(v uint16) {
	e.b = AppendU16(e.b, v)
}

func (e *Encoder) WriteU32(v uint32) {
	e.b = AppendU32(e.b, v)
}

func (e *Encoder) WriteBytes(b []byte) {
	e.b = append(e.b, b...)
}

// WriteString writes s as Windows-1252 followed by a NUL terminator.
func (e *Encoder) WriteString(s string) {
	e.b = append(e.b, EncodeText(s)...)
	e.b = append(e.b, 0)
}
