package proto

// MIDI data bytes carry 7 bits. Payloads are sent in groups of up to seven
// bytes, each group preceded by a byte that collects their high bits: the
// MSB of the i-th byte of the group sits at bit (6-i).

// Encode7Bit packs 8-bit data into 7-bit-safe bytes.
func Encode7Bit(data []byte) []byte {
	out := make([]byte, 0, Encoded7BitLen(len(data)))
	for r := 0; r < len(data); r += 7 {
		end := r + 7
		if end > len(data) {
			end = len(data)
		}
		group := data[r:end]
		var hi byte
		for i, b := range group {
			hi |= (b & 0x80) >> (i + 1)
		}
		out = append(out, hi)
		for _, b := range group {
			out = append(out, b&0x7F)
		}
	}
	return out
}

// Decode7Bit reverses Encode7Bit. A trailing high-bits byte with no data
// bytes after it contributes nothing.
func Decode7Bit(data []byte) []byte {
	out := make([]byte, 0, len(data)-len(data)/8)
	for r := 0; r < len(data); {
		hi := data[r]
		r++
		n := len(data) - r
		if n > 7 {
			n = 7
		}
		for i := 0; i < n; i++ {
			out = append(out, ((hi<<(i+1))&0x80)|(data[r]&0x7F))
			r++
		}
	}
	return out
}

// Encoded7BitLen is the packed length of n payload bytes.
func Encoded7BitLen(n int) int {
	return n + (n+6)/7
}
