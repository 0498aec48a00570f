package proto

import "fmt"

// Frame is a parsed SysEx message.
type Frame struct {
	Header
	DeviceID byte
	Message  Message
}

// Parse decodes a raw SysEx frame. It never fails: anything that is not a
// +Drive frame, has an unknown type or a malformed body comes back as Unknown.
func Parse(frame []byte) Frame {
	payload, dev, ok := Unwrap(frame)
	if !ok {
		return Frame{Message: Unknown{}}
	}
	f := ParsePayload(payload)
	f.DeviceID = dev
	return f
}

// ParsePayload decodes an already unwrapped payload.
func ParsePayload(payload []byte) Frame {
	d := NewDecoder(payload)
	var f Frame
	var err error
	if f.MsgID, err = d.ReadU16(); err != nil {
		return Frame{Message: Unknown{}}
	}
	if f.RespID, err = d.ReadU16(); err != nil {
		return Frame{Header: f.Header, Message: Unknown{}}
	}
	id, err := d.ReadU8()
	if err != nil {
		return Frame{Header: f.Header, Message: Unknown{}}
	}
	body := payload[PayloadHeaderSize:]
	m, err := decodeMessage(Type(id), NewDecoder(body))
	if err != nil {
		m = Unknown{ID: id, Data: append([]byte(nil), body...)}
	}
	f.Message = m
	return f
}

func decodeMessage(t Type, d *Decoder) (Message, error) {
	switch t {
	case TypeDeviceRequest:
		return DeviceRequest{}, nil
	case TypeDeviceResponse:
		return decodeDeviceResponse(d)
	case TypeVersionRequest:
		return VersionRequest{}, nil
	case TypeVersionResponse:
		var m VersionResponse
		var err error
		if m.Build, err = d.ReadString(); err != nil {
			return nil, err
		}
		if m.Version, err = d.ReadString(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeDirListRequest:
		p, err := d.ReadString()
		return DirListRequest{Path: p}, err
	case TypeDirListResponse:
		return decodeDirList(d)
	case TypeDirCreateRequest:
		p, err := d.ReadString()
		return DirCreateRequest{Path: p}, err
	case TypeDirCreateResponse:
		ok, err := d.ReadBool()
		return DirCreateResponse{OK: ok}, err
	case TypeDirDeleteRequest:
		p, err := d.ReadString()
		return DirDeleteRequest{Path: p}, err
	case TypeDirDeleteResponse:
		ok, err := d.ReadBool()
		return DirDeleteResponse{OK: ok}, err
	case TypeFileDeleteRequest:
		p, err := d.ReadString()
		return FileDeleteRequest{Path: p}, err
	case TypeFileDeleteResponse:
		ok, err := d.ReadBool()
		return FileDeleteResponse{OK: ok}, err
	case TypeItemRenameRequest:
		var m ItemRenameRequest
		var err error
		if m.From, err = d.ReadString(); err != nil {
			return nil, err
		}
		if m.To, err = d.ReadString(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeItemRenameResponse:
		ok, err := d.ReadBool()
		return ItemRenameResponse{OK: ok}, err
	case TypeSampleFileInfoRequest:
		var m SampleFileInfoRequest
		if err := readU32s(d, &m.Hash, &m.Size); err != nil {
			return nil, err
		}
		return m, nil
	case TypeSampleFileInfoResponse:
		var m SampleFileInfoResponse
		var err error
		if m.OK, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if err := readU32s(d, &m.Size, &m.Hash); err != nil {
			return nil, err
		}
		if m.Path, err = d.ReadString(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileReadOpenRequest:
		p, err := d.ReadString()
		return FileReadOpenRequest{Path: p}, err
	case TypeFileReadOpenResponse:
		var m FileReadOpenResponse
		var err error
		if m.OK, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if err := readU32s(d, &m.FD, &m.TotalLen); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileReadCloseRequest:
		fd, err := d.ReadU32()
		return FileReadCloseRequest{FD: fd}, err
	case TypeFileReadCloseResponse:
		var m FileReadCloseResponse
		if err := readU32s(d, &m.FD, &m.TotalLen); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileReadRequest:
		var m FileReadRequest
		if err := readU32s(d, &m.FD, &m.ChunkLen, &m.ChunkStart); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileReadResponse:
		var m FileReadResponse
		var err error
		if m.OK, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if err := readU32s(d, &m.FD, &m.ChunkLen, &m.ChunkStart, &m.ChunkEnd); err != nil {
			return nil, err
		}
		m.Data = d.Rest()
		return m, nil
	case TypeFileWriteOpenRequest:
		var m FileWriteOpenRequest
		var err error
		if m.TotalLen, err = d.ReadU32(); err != nil {
			return nil, err
		}
		if m.Path, err = d.ReadString(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileWriteOpenResponse:
		var m FileWriteOpenResponse
		var err error
		if m.OK, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if m.FD, err = d.ReadU32(); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileWriteCloseRequest:
		var m FileWriteCloseRequest
		if err := readU32s(d, &m.FD, &m.TotalLen); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileWriteCloseResponse:
		var m FileWriteCloseResponse
		var err error
		if m.OK, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if err := readU32s(d, &m.FD, &m.TotalLen); err != nil {
			return nil, err
		}
		return m, nil
	case TypeFileWriteRequest:
		var m FileWriteRequest
		if err := readU32s(d, &m.FD, &m.ChunkLen, &m.ChunkStart); err != nil {
			return nil, err
		}
		m.Data = d.Rest()
		return m, nil
	case TypeFileWriteResponse:
		var m FileWriteResponse
		var err error
		if m.OK, err = d.ReadBool(); err != nil {
			return nil, err
		}
		if m.WrittenLen, err = d.ReadU32(); err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown message type %s", t)
}

func decodeDeviceResponse(d *Decoder) (Message, error) {
	var m DeviceResponse
	var err error
	if m.ProductID, err = d.ReadU8(); err != nil {
		return nil, err
	}
	n, err := d.ReadU8()
	if err != nil {
		return nil, err
	}
	ids, err := d.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	m.Messages = append([]byte{}, ids...)
	if m.DeviceName, err = d.ReadString(); err != nil {
		return nil, err
	}
	return m, nil
}

// decodeDirList reads records until the payload is exhausted.
func decodeDirList(d *Decoder) (Message, error) {
	m := DirListResponse{Entries: []DirEntry{}}
	for d.More() {
		var e DirEntry
		if err := readU32s(d, &e.Hash, &e.Size); err != nil {
			return nil, err
		}
		locked, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		e.Locked = locked
		k, err := d.ReadU8()
		if err != nil {
			return nil, err
		}
		e.Kind = EntryKind(k)
		if e.Name, err = d.ReadString(); err != nil {
			return nil, err
		}
		m.Entries = append(m.Entries, e)
	}
	return m, nil
}

func readU32s(d *Decoder, dst ...*uint32) error {
	for _, p := range dst {
		v, err := d.ReadU32()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}
