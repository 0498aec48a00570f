package proto

// Header is the payload prefix preceding the message type byte.
type Header struct {
	MsgID  uint16
	RespID uint16
}

// EncodePayload serialises h and m without the SysEx envelope.
func EncodePayload(h Header, m Message) []byte {
	e := NewEncoder(PayloadHeaderSize + 32)
	e.WriteU16(h.MsgID)
	e.WriteU16(h.RespID)
	e.WriteU8(byte(m.Type()))
	m.encodeFields(e)
	return e.Bytes()
}

// Encode serialises h and m and wraps them in a SysEx envelope for deviceID.
func Encode(deviceID byte, h Header, m Message) []byte {
	return Wrap(deviceID, EncodePayload(h, m))
}

// BuildRequest encodes a request with the given message id. Requests always
// carry a zero response id.
func BuildRequest(deviceID byte, msgID uint16, m Message) []byte {
	return Encode(deviceID, Header{MsgID: msgID}, m)
}

// BuildResponse encodes a response to the request carrying reqID.
func BuildResponse(deviceID byte, msgID, reqID uint16, m Message) []byte {
	return Encode(deviceID, Header{MsgID: msgID, RespID: reqID}, m)
}
