package proto

import "fmt"

var typeNames = map[Type]string{
	TypeDeviceRequest:          "DeviceRequest",
	TypeDeviceResponse:         "DeviceResponse",
	TypeVersionRequest:         "VersionRequest",
	TypeVersionResponse:        "VersionResponse",
	TypeDirListRequest:         "DirListRequest",
	TypeDirListResponse:        "DirListResponse",
	TypeDirCreateRequest:       "DirCreateRequest",
	TypeDirCreateResponse:      "DirCreateResponse",
	TypeDirDeleteRequest:       "DirDeleteRequest",
	TypeDirDeleteResponse:      "DirDeleteResponse",
	TypeFileDeleteRequest:      "FileDeleteRequest",
	TypeFileDeleteResponse:     "FileDeleteResponse",
	TypeItemRenameRequest:      "ItemRenameRequest",
	TypeItemRenameResponse:     "ItemRenameResponse",
	TypeSampleFileInfoRequest:  "SampleFileInfoRequest",
	TypeSampleFileInfoResponse: "SampleFileInfoResponse",
	TypeFileReadOpenRequest:    "FileReadOpenRequest",
	TypeFileReadOpenResponse:   "FileReadOpenResponse",
	TypeFileReadCloseRequest:   "FileReadCloseRequest",
	TypeFileReadCloseResponse:  "FileReadCloseResponse",
	TypeFileReadRequest:        "FileReadRequest",
	TypeFileReadResponse:       "FileReadResponse",
	TypeFileWriteOpenRequest:   "FileWriteOpenRequest",
	TypeFileWriteOpenResponse:  "FileWriteOpenResponse",
	TypeFileWriteCloseRequest:  "FileWriteCloseRequest",
	TypeFileWriteCloseResponse: "FileWriteCloseResponse",
	TypeFileWriteRequest:       "FileWriteRequest",
	TypeFileWriteResponse:      "FileWriteResponse",
}

// String returns the message name, or "Unknown(0xNN)".
func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Unknown(0x%02X)", byte(t))
}

// Known reports whether t is one of the defined message types.
func (t Type) Known() bool {
	_, ok := typeNames[t]
	return ok
}
