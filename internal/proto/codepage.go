package proto

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Names on the drive are single-byte Windows-1252. Bytes 0x00-0x7F and
// 0xA0-0xFF are their own code point; 0x80-0x9F go through the charmap's
// substitution table. The five unassigned bytes in that range and every
// code point outside the table become '?'.

const replacement = '?'

var win1252 = charmap.Windows1252

// EncodeText converts s to Windows-1252 bytes. s is NFC-normalised first so
// that decomposed accents encode as their precomposed single byte.
func EncodeText(s string) []byte {
	s = norm.NFC.String(s)
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, encodeRune(r))
	}
	return out
}

// DecodeText converts Windows-1252 bytes to a string.
func DecodeText(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(decodeByte(c))
	}
	return sb.String()
}

func encodeRune(r rune) byte {
	switch {
	case r < 0x80:
		return byte(r)
	case r <= 0x9F:
		// C1 controls have no place in a name.
		return replacement
	case r <= 0xFF:
		return byte(r)
	}
	if b, ok := win1252.EncodeRune(r); ok && b >= 0x80 && b <= 0x9F {
		return b
	}
	return replacement
}

func decodeByte(b byte) rune {
	if b < 0x80 || b >= 0xA0 {
		return rune(b)
	}
	r := win1252.DecodeByte(b)
	if r == rune(b) || r == utf8.RuneError {
		return replacement
	}
	return r
}
