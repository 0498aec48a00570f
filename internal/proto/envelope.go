package proto

// Wrap builds a complete SysEx frame:
//
//	F0 00 20 3C <deviceID> 00 <7bit(payload)> F7
func Wrap(deviceID byte, payload []byte) []byte {
	out := make([]byte, 0, HeaderSize+Encoded7BitLen(len(payload))+1)
	out = append(out, SysExStart, VendorID[0], VendorID[1], VendorID[2], deviceID, SubID)
	out = append(out, Encode7Bit(payload)...)
	return append(out, SysExEnd)
}

// Unwrap validates the envelope and returns the decoded payload together with
// the device id it carried. ok is false for anything that is not one of our
// frames; that is not an error.
func Unwrap(frame []byte) (payload []byte, deviceID byte, ok bool) {
	if len(frame) < HeaderSize+1 {
		return nil, 0, false
	}
	if frame[0] != SysExStart {
		return nil, 0, false
	}
	if frame[1] != VendorID[0] || frame[2] != VendorID[1] || frame[3] != VendorID[2] {
		return nil, 0, false
	}
	if frame[len(frame)-1] != SysExEnd {
		return nil, 0, false
	}
	return Decode7Bit(frame[HeaderSize : len(frame)-1]), frame[4], true
}
