package proto

// Message is one +Drive request or response. The set of variants is closed.
type Message interface {
	Type() Type
	isMessage()
	encodeFields(e *Encoder)
}

// DirEntry is one record of a directory listing.
type DirEntry struct {
	Hash   uint32
	Size   uint32
	Locked bool
	Kind   EntryKind
	Name   string
}

type DeviceRequest struct{}

type DeviceResponse struct {
	ProductID  byte
	Messages   []byte // message type ids the device understands
	DeviceName string
}

type VersionRequest struct{}

type VersionResponse struct {
	Build   string
	Version string
}

type DirListRequest struct {
	Path string
}

type DirListResponse struct {
	Entries []DirEntry
}

type DirCreateRequest struct {
	Path string
}

type DirCreateResponse struct {
	OK bool
}

type DirDeleteRequest struct {
	Path string
}

type DirDeleteResponse struct {
	OK bool
}

type FileDeleteRequest struct {
	Path string
}

type FileDeleteResponse struct {
	OK bool
}

type ItemRenameRequest struct {
	From string
	To   string
}

type ItemRenameResponse struct {
	OK bool
}

type SampleFileInfoRequest struct {
	Hash uint32
	Size uint32
}

type SampleFileInfoResponse struct {
	OK   bool
	Size uint32
	Hash uint32
	Path string
}

type FileReadOpenRequest struct {
	Path string
}

type FileReadOpenResponse struct {
	OK       bool
	FD       uint32
	TotalLen uint32
}

type FileReadCloseRequest struct {
	FD uint32
}

type FileReadCloseResponse struct {
	FD       uint32
	TotalLen uint32
}

type FileReadRequest struct {
	FD         uint32
	ChunkLen   uint32
	ChunkStart uint32
}

type FileReadResponse struct {
	OK         bool
	FD         uint32
	ChunkLen   uint32
	ChunkStart uint32
	ChunkEnd   uint32
	Data       []byte
}

type FileWriteOpenRequest struct {
	TotalLen uint32
	Path     string
}

type FileWriteOpenResponse struct {
	OK bool
	FD uint32
}

type FileWriteCloseRequest struct {
	FD       uint32
	TotalLen uint32
}

type FileWriteCloseResponse struct {
	OK       bool
	FD       uint32
	TotalLen uint32
}

type FileWriteRequest struct {
	FD         uint32
	ChunkLen   uint32
	ChunkStart uint32
	Data       []byte
}

type FileWriteResponse struct {
	OK         bool
	WrittenLen uint32
}

// Unknown is what Parse yields for a type it does not know or a body it
// cannot decode. ID is the raw type byte and Data the bytes after it.
type Unknown struct {
	ID   byte
	Data []byte
}

func (DeviceRequest) Type() Type          { return TypeDeviceRequest }
func (DeviceResponse) Type() Type         { return TypeDeviceResponse }
func (VersionRequest) Type() Type         { return TypeVersionRequest }
func (VersionResponse) Type() Type        { return TypeVersionResponse }
func (DirListRequest) Type() Type         { return TypeDirListRequest }
func (DirListResponse) Type() Type        { return TypeDirListResponse }
func (DirCreateRequest) Type() Type       { return TypeDirCreateRequest }
func (DirCreateResponse) Type() Type      { return TypeDirCreateResponse }
func (DirDeleteRequest) Type() Type       { return TypeDirDeleteRequest }
func (DirDeleteResponse) Type() Type      { return TypeDirDeleteResponse }
func (FileDeleteRequest) Type() Type      { return TypeFileDeleteRequest }
func (FileDeleteResponse) Type() Type     { return TypeFileDeleteResponse }
func (ItemRenameRequest) Type() Type      { return TypeItemRenameRequest }
func (ItemRenameResponse) Type() Type     { return TypeItemRenameResponse }
func (SampleFileInfoRequest) Type() Type  { return TypeSampleFileInfoRequest }
func (SampleFileInfoResponse) Type() Type { return TypeSampleFileInfoResponse }
func (FileReadOpenRequest) Type() Type    { return TypeFileReadOpenRequest }
func (FileReadOpenResponse) Type() Type   { return TypeFileReadOpenResponse }
func (FileReadCloseRequest) Type() Type   { return TypeFileReadCloseRequest }
func (FileReadCloseResponse) Type() Type  { return TypeFileReadCloseResponse }
func (FileReadRequest) Type() Type        { return TypeFileReadRequest }
func (FileReadResponse) Type() Type       { return TypeFileReadResponse }
func (FileWriteOpenRequest) Type() Type   { return TypeFileWriteOpenRequest }
func (FileWriteOpenResponse) Type() Type  { return TypeFileWriteOpenResponse }
func (FileWriteCloseRequest) Type() Type  { return TypeFileWriteCloseRequest }
func (FileWriteCloseResponse) Type() Type { return TypeFileWriteCloseResponse }
func (FileWriteRequest) Type() Type       { return TypeFileWriteRequest }
func (FileWriteResponse) Type() Type      { return TypeFileWriteResponse }
func (u Unknown) Type() Type              { return Type(u.ID) }

func (DeviceRequest) isMessage()          {}
func (DeviceResponse) isMessage()         {}
func (VersionRequest) isMessage()         {}
func (VersionResponse) isMessage()        {}
func (DirListRequest) isMessage()         {}
func (DirListResponse) isMessage()        {}
func (DirCreateRequest) isMessage()       {}
func (DirCreateResponse) isMessage()      {}
func (DirDeleteRequest) isMessage()       {}
func (DirDeleteResponse) isMessage()      {}
func (FileDeleteRequest) isMessage()      {}
func (FileDeleteResponse) isMessage()     {}
func (ItemRenameRequest) isMessage()      {}
func (ItemRenameResponse) isMessage()     {}
func (SampleFileInfoRequest) isMessage()  {}
func (SampleFileInfoResponse) isMessage() {}
func (FileReadOpenRequest) isMessage()    {}
func (FileReadOpenResponse) isMessage()   {}
func (FileReadCloseRequest) isMessage()   {}
func (FileReadCloseResponse) isMessage()  {}
func (FileReadRequest) isMessage()        {}
func (FileReadResponse) isMessage()       {}
func (FileWriteOpenRequest) isMessage()   {}
func (FileWriteOpenResponse) isMessage()  {}
func (FileWriteCloseRequest) isMessage()  {}
func (FileWriteCloseResponse) isMessage() {}
func (FileWriteRequest) isMessage()       {}
func (FileWriteResponse) isMessage()      {}
func (Unknown) isMessage()                {}

func (DeviceRequest) encodeFields(*Encoder) {}

func (m DeviceResponse) encodeFields(e *Encoder) {
	// The count is one byte; ids past the 255th are dropped.
	msgs := m.Messages
	if len(msgs) > 0xFF {
		msgs = msgs[:0xFF]
	}
	e.WriteU8(m.ProductID)
	e.WriteU8(byte(len(msgs)))
	e.WriteBytes(msgs)
	e.WriteString(m.DeviceName)
}

func (VersionRequest) encodeFields(*Encoder) {}

func (m VersionResponse) encodeFields(e *Encoder) {
	e.WriteString(m.Build)
	e.WriteString(m.Version)
}

func (m DirListRequest) encodeFields(e *Encoder) { e.WriteString(m.Path) }

func (m DirListResponse) encodeFields(e *Encoder) {
	for _, ent := range m.Entries {
		e.WriteU32(ent.Hash)
		e.WriteU32(ent.Size)
		e.WriteBool(ent.Locked)
		e.WriteU8(byte(ent.Kind))
		e.WriteString(ent.Name)
	}
}

func (m DirCreateRequest) encodeFields(e *Encoder)   { e.WriteString(m.Path) }
func (m DirCreateResponse) encodeFields(e *Encoder)  { e.WriteBool(m.OK) }
func (m DirDeleteRequest) encodeFields(e *Encoder)   { e.WriteString(m.Path) }
func (m DirDeleteResponse) encodeFields(e *Encoder)  { e.WriteBool(m.OK) }
func (m FileDeleteRequest) encodeFields(e *Encoder)  { e.WriteString(m.Path) }
func (m FileDeleteResponse) encodeFields(e *Encoder) { e.WriteBool(m.OK) }

func (m ItemRenameRequest) encodeFields(e *Encoder) {
	e.WriteString(m.From)
	e.WriteString(m.To)
}

func (m ItemRenameResponse) encodeFields(e *Encoder) { e.WriteBool(m.OK) }

func (m SampleFileInfoRequest) encodeFields(e *Encoder) {
	e.WriteU32(m.Hash)
	e.WriteU32(m.Size)
}

func (m SampleFileInfoResponse) encodeFields(e *Encoder) {
	e.WriteBool(m.OK)
	e.WriteU32(m.Size)
	e.WriteU32(m.Hash)
	e.WriteString(m.Path)
}

func (m FileReadOpenRequest) encodeFields(e *Encoder) { e.WriteString(m.Path) }

func (m FileReadOpenResponse) encodeFields(e *Encoder) {
	e.WriteBool(m.OK)
	e.WriteU32(m.FD)
	e.WriteU32(m.TotalLen)
}

func (m FileReadCloseRequest) encodeFields(e *Encoder) { e.WriteU32(m.FD) }

func (m FileReadCloseResponse) encodeFields(e *Encoder) {
	e.WriteU32(m.FD)
	e.WriteU32(m.TotalLen)
}

func (m FileReadRequest) encodeFields(e *Encoder) {
	e.WriteU32(m.FD)
	e.WriteU32(m.ChunkLen)
	e.WriteU32(m.ChunkStart)
}

func (m FileReadResponse) encodeFields(e *Encoder) {
	e.WriteBool(m.OK)
	e.WriteU32(m.FD)
	e.WriteU32(m.ChunkLen)
	e.WriteU32(m.ChunkStart)
	e.WriteU32(m.ChunkEnd)
	e.WriteBytes(m.Data)
}

func (m FileWriteOpenRequest) encodeFields(e *Encoder) {
	e.WriteU32(m.TotalLen)
	e.WriteString(m.Path)
}

func (m FileWriteOpenResponse) encodeFields(e *Encoder) {
	e.WriteBool(m.OK)
	e.WriteU32(m.FD)
}

func (m FileWriteCloseRequest) encodeFields(e *Encoder) {
	e.WriteU32(m.FD)
	e.WriteU32(m.TotalLen)
}

func (m FileWriteCloseResponse) encodeFields(e *Encoder) {
	e.WriteBool(m.OK)
	e.WriteU32(m.FD)
	e.WriteU32(m.TotalLen)
}

func (m FileWriteRequest) encodeFields(e *Encoder) {
	e.WriteU32(m.FD)
	e.WriteU32(m.ChunkLen)
	e.WriteU32(m.ChunkStart)
	e.WriteBytes(m.Data)
}

func (m FileWriteResponse) encodeFields(e *Encoder) {
	e.WriteBool(m.OK)
	e.WriteU32(m.WrittenLen)
}

func (m Unknown) encodeFields(e *Encoder) { e.WriteBytes(m.Data) }
