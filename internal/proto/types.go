package proto

// SysEx framing constants.
const (
	SysExStart = 0xF0
	SysExEnd   = 0xF7
	// SubID follows the device id in every +Drive envelope.
	SubID = 0x00

	// HeaderSize is the envelope prefix: F0, 3-byte vendor id, device id, sub id.
	HeaderSize = 6
	// PayloadHeaderSize is msgId(2) + respId(2) + type(1).
	PayloadHeaderSize = 5

	// ChunkSize is the file transfer chunk length used by the device.
	ChunkSize = 512
)

// VendorID is the 3-byte manufacturer id carried in every envelope.
var VendorID = [3]byte{0x00, 0x20, 0x3C}

// Known device ids. The ids differ between hardware generations and the
// original firmware documentation does not agree with captured traffic, so
// the device id is always an explicit parameter.
const (
	DeviceDigitakt   byte = 0x0C
	DeviceDigitakt2  byte = 0x2A
	DeviceLegacyDT   byte = 0x10 // id observed in envelopes sent by early tooling
	DeviceDigitone   byte = 0x0E
	DeviceAnalogFour byte = 0x0F

	DefaultDeviceID = DeviceLegacyDT
)

// ProbeDeviceIDs lists candidate ids tried, in order, when probing an unknown unit.
var ProbeDeviceIDs = []byte{DeviceLegacyDT, 0x11, 0x12, DeviceDigitakt, DeviceDigitakt2, DeviceDigitone, DeviceAnalogFour}

// Type is the message type byte. Requests have the high bit clear; the
// matching response is the request type | 0x80.
type Type byte

const (
	TypeDeviceRequest  Type = 0x01
	TypeDeviceResponse Type = 0x81

	TypeVersionRequest  Type = 0x02
	TypeVersionResponse Type = 0x82

	TypeDirListRequest    Type = 0x10
	TypeDirListResponse   Type = 0x90
	TypeDirCreateRequest  Type = 0x11
	TypeDirCreateResponse Type = 0x91
	TypeDirDeleteRequest  Type = 0x12
	TypeDirDeleteResponse Type = 0x92

	TypeFileDeleteRequest      Type = 0x20
	TypeFileDeleteResponse     Type = 0xA0
	TypeItemRenameRequest      Type = 0x21
	TypeItemRenameResponse     Type = 0xA1
	TypeSampleFileInfoRequest  Type = 0x23
	TypeSampleFileInfoResponse Type = 0xA3
	TypeFileReadOpenRequest    Type = 0x30
	TypeFileReadOpenResponse   Type = 0xB0
	TypeFileReadCloseRequest   Type = 0x31
	TypeFileReadCloseResponse  Type = 0xB1
	TypeFileReadRequest        Type = 0x32
	TypeFileReadResponse       Type = 0xB2
	TypeFileWriteOpenRequest   Type = 0x40
	TypeFileWriteOpenResponse  Type = 0xC0
	TypeFileWriteCloseRequest  Type = 0x41
	TypeFileWriteCloseResponse Type = 0xC1
	TypeFileWriteRequest       Type = 0x42
	TypeFileWriteResponse      Type = 0xC2
)

// IsResponse reports whether t is a response type.
func (t Type) IsResponse() bool { return t&0x80 != 0 }

// Response returns the response type paired with request type t.
func (t Type) Response() Type { return t | 0x80 }

// EntryKind is the type byte of a directory-list record.
type EntryKind byte

const (
	KindFile      EntryKind = 'F'
	KindDirectory EntryKind = 'D'
)

// IsDir reports whether k marks a directory. The device sends upper case,
// other implementations lower case.
func (k EntryKind) IsDir() bool { return k == 'D' || k == 'd' }
