package proto

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSevenBitKnownVectors(t *testing.T) {
	tests := []struct {
		in   []byte
		want []byte
	}{
		{nil, []byte{}},
		{[]byte{0x01}, []byte{0x00, 0x01}},
		{[]byte{0x80}, []byte{0x40, 0x00}},
		{[]byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xFF}, []byte{0x01, 0, 0, 0, 0, 0, 0, 0x7F}},
		{[]byte{0xFF, 0x7F, 0x81, 0, 0, 0, 0, 0x90}, []byte{0x50, 0x7F, 0x7F, 0x01, 0, 0, 0, 0, 0x40, 0x10}},
	}
	for _, tt := range tests {
		got := Encode7Bit(tt.in)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("Encode7Bit(% X) mismatch (-want +got):\n%s", tt.in, diff)
		}
		for _, b := range got {
			if b&0x80 != 0 {
				t.Fatalf("Encode7Bit(% X) produced byte with high bit set: % X", tt.in, got)
			}
		}
	}
}

func TestSevenBitRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		in := make([]byte, rng.Intn(100))
		rng.Read(in)
		enc := Encode7Bit(in)
		if len(enc) != Encoded7BitLen(len(in)) {
			t.Fatalf("encoded length %d, want %d", len(enc), Encoded7BitLen(len(in)))
		}
		if out := Decode7Bit(enc); !bytes.Equal(in, out) {
			t.Fatalf("round trip failed:\n in % X\nout % X", in, out)
		}
	}
}

func TestCodePage(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"Kick 01", []byte("Kick 01")},
		{"€", []byte{0x80}},
		{"Œ", []byte{0x8C}},
		{"é", []byte{0xE9}},
		{"e\u0301", []byte{0xE9}},
		{"日本", []byte{'?', '?'}},
		{"\u0085", []byte{'?'}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, EncodeText(tt.in)); diff != "" {
			t.Errorf("EncodeText(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}

	for _, b := range []byte{0x81, 0x8D, 0x8F, 0x90, 0x9D} {
		if got := DecodeText([]byte{b}); got != "?" {
			t.Errorf("DecodeText(%02X) = %q, want ?", b, got)
		}
	}
	if got := DecodeText([]byte{0x80, 0x99, 0xA0, 0xFF}); got != "€™\u00a0ÿ" {
		t.Errorf("DecodeText = %q", got)
	}
}

func TestCodePageRoundTripAllMappedBytes(t *testing.T) {
	unassigned := map[byte]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}
	for i := 1; i < 256; i++ {
		b := byte(i)
		if unassigned[b] {
			continue
		}
		s := DecodeText([]byte{b})
		got := EncodeText(s)
		if len(got) != 1 || got[0] != b {
			t.Errorf("byte %02X -> %q -> % X", b, s, got)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x00, 0x00, 0x10, '/', 0x00, 0xFF}
	frame := Wrap(DeviceDigitakt, payload)
	if frame[0] != 0xF0 || frame[len(frame)-1] != 0xF7 {
		t.Fatalf("bad frame boundaries: % X", frame)
	}
	if !bytes.Equal(frame[1:6], []byte{0x00, 0x20, 0x3C, DeviceDigitakt, 0x00}) {
		t.Fatalf("bad header: % X", frame[:6])
	}
	got, dev, ok := Unwrap(frame)
	if !ok || dev != DeviceDigitakt || !bytes.Equal(got, payload) {
		t.Fatalf("Unwrap = % X, %02X, %v", got, dev, ok)
	}

	bad := [][]byte{
		nil,
		{0xF0, 0xF7},
		{0xF0, 0x00, 0x21, 0x3C, 0x0C, 0x00, 0xF7},
		{0xF0, 0x00, 0x20, 0x3C, 0x0C, 0x00, 0x00},
		{0x90, 0x00, 0x20, 0x3C, 0x0C, 0x00, 0xF7},
	}
	for _, f := range bad {
		if _, _, ok := Unwrap(f); ok {
			t.Errorf("Unwrap(% X) accepted", f)
		}
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msgs := []Message{
		DeviceRequest{},
		DeviceResponse{ProductID: 12, Messages: []byte{0x01, 0x02, 0x10}, DeviceName: "Digitakt"},
		VersionRequest{},
		VersionResponse{Build: "0042", Version: "1.51A"},
		DirListRequest{Path: "/"},
		DirListResponse{Entries: []DirEntry{}},
		DirListResponse{Entries: []DirEntry{
			{Hash: 0, Size: 0, Locked: false, Kind: KindDirectory, Name: "samples"},
			{Hash: 0xDEADBEEF, Size: 1234, Locked: true, Kind: KindFile, Name: "Kick €.wav"},
		}},
		DirCreateRequest{Path: "/samples/new"},
		DirCreateResponse{OK: true},
		DirDeleteRequest{Path: "/x"},
		DirDeleteResponse{OK: false},
		FileDeleteRequest{Path: "/x/y.wav"},
		FileDeleteResponse{OK: true},
		ItemRenameRequest{From: "/a", To: "/b"},
		ItemRenameResponse{OK: true},
		SampleFileInfoRequest{Hash: 7, Size: 9},
		SampleFileInfoResponse{OK: true, Size: 9, Hash: 7, Path: "/s/k.wav"},
		FileReadOpenRequest{Path: "/s/k.wav"},
		FileReadOpenResponse{OK: true, FD: 3, TotalLen: 2048},
		FileReadCloseRequest{FD: 3},
		FileReadCloseResponse{FD: 3, TotalLen: 2048},
		FileReadRequest{FD: 3, ChunkLen: 512, ChunkStart: 512},
		FileReadResponse{OK: true, FD: 3, ChunkLen: 3, ChunkStart: 512, ChunkEnd: 515, Data: []byte{0x80, 0x00, 0xFF}},
		FileWriteOpenRequest{TotalLen: 10, Path: "/s/new.wav"},
		FileWriteOpenResponse{OK: true, FD: 4},
		FileWriteCloseRequest{FD: 4, TotalLen: 10},
		FileWriteCloseResponse{OK: true, FD: 4, TotalLen: 10},
		FileWriteRequest{FD: 4, ChunkLen: 2, ChunkStart: 0, Data: []byte{1, 2}},
		FileWriteResponse{OK: true, WrittenLen: 2},
	}
	for i, m := range msgs {
		frame := BuildResponse(DeviceDigitakt2, uint16(i+1), 77, m)
		f := Parse(frame)
		if f.MsgID != uint16(i+1) || f.RespID != 77 || f.DeviceID != DeviceDigitakt2 {
			t.Errorf("%s: header = %+v dev %02X", m.Type(), f.Header, f.DeviceID)
		}
		if diff := cmp.Diff(m, f.Message); diff != "" {
			t.Errorf("%s round trip mismatch (-want +got):\n%s", m.Type(), diff)
		}
	}
}

func TestDeviceResponseClampsMessageList(t *testing.T) {
	ids := make([]byte, 300)
	for i := range ids {
		ids[i] = byte(i % 0x80)
	}
	f := Parse(BuildResponse(DeviceDigitakt, 1, 1, DeviceResponse{ProductID: 12, Messages: ids, DeviceName: "Digitakt"}))
	want := DeviceResponse{ProductID: 12, Messages: ids[:255], DeviceName: "Digitakt"}
	if diff := cmp.Diff(want, f.Message); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildRequestCarriesZeroRespID(t *testing.T) {
	f := Parse(BuildRequest(DefaultDeviceID, 5, DirListRequest{Path: "/"}))
	if f.MsgID != 5 || f.RespID != 0 {
		t.Fatalf("header = %+v", f.Header)
	}
}

func TestParseNeverFails(t *testing.T) {
	if diff := cmp.Diff(Message(Unknown{}), Parse(nil).Message); diff != "" {
		t.Errorf("Parse(nil) mismatch:\n%s", diff)
	}
	if f := Parse([]byte{0xF8}); f.Message.Type() != 0 {
		t.Errorf("Parse(realtime) = %#v", f.Message)
	}

	// Unknown type byte keeps the body.
	f := Parse(Wrap(DefaultDeviceID, []byte{0, 1, 0, 0, 0x7E, 9, 8}))
	if diff := cmp.Diff(Message(Unknown{ID: 0x7E, Data: []byte{9, 8}}), f.Message); diff != "" {
		t.Errorf("unknown type mismatch:\n%s", diff)
	}

	// A boolean byte other than 0/1 degrades the whole message.
	f = Parse(Wrap(DefaultDeviceID, []byte{0, 1, 0, 1, byte(TypeDirCreateResponse), 2}))
	if u, ok := f.Message.(Unknown); !ok || u.ID != byte(TypeDirCreateResponse) {
		t.Errorf("bad bool parsed as %#v", f.Message)
	}

	// Truncated dir-list record.
	f = Parse(Wrap(DefaultDeviceID, []byte{0, 1, 0, 1, byte(TypeDirListResponse), 0, 0, 0}))
	if _, ok := f.Message.(Unknown); !ok {
		t.Errorf("truncated listing parsed as %#v", f.Message)
	}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		b := make([]byte, rng.Intn(64))
		rng.Read(b)
		_ = Parse(b)
		_ = Parse(Wrap(DefaultDeviceID, b))
	}
}

func TestExpect(t *testing.T) {
	resp, err := Expect[DirListResponse](DirListResponse{Entries: []DirEntry{}})
	if err != nil || resp.Entries == nil {
		t.Fatalf("Expect = %v, %v", resp, err)
	}
	_, err = Expect[DirListResponse](DirCreateResponse{OK: true})
	var me *MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("Expect mismatch error = %v", err)
	}
	if me.Want != TypeDirListResponse || me.Got.Type() != TypeDirCreateResponse {
		t.Errorf("MismatchError = %+v", me)
	}
	if got := me.Error(); got != "protocol mismatch: want DirListResponse, got DirCreateResponse" {
		t.Errorf("Error() = %q", got)
	}
}

func TestTypeNames(t *testing.T) {
	if got := TypeSampleFileInfoResponse.String(); got != "SampleFileInfoResponse" {
		t.Errorf("String = %q", got)
	}
	if got := Type(0x55).String(); got != "Unknown(0x55)" {
		t.Errorf("String = %q", got)
	}
	if TypeDirListRequest.Response() != TypeDirListResponse || !TypeDirListResponse.IsResponse() {
		t.Error("Response pairing broken")
	}
	if !TypeFileWriteResponse.Known() || Type(0x55).Known() {
		t.Error("Known disagrees with the name table")
	}
}
