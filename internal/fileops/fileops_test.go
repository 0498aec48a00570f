package fileops

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"elkdrive/internal/drive"
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
	"elkdrive/internal/session"
)

// scripted records requests and answers each with reply.
type scripted struct {
	connected bool
	reqs      []proto.Message
	reply     func(m proto.Message) (proto.Message, error)
}

func (s *scripted) Connected() bool { return s.connected }

func (s *scripted) Request(ctx context.Context, m proto.Message) (proto.Message, error) {
	s.reqs = append(s.reqs, m)
	return s.reply(m)
}

// okReply answers every request with its success response.
func okReply(m proto.Message) (proto.Message, error) {
	switch m.(type) {
	case proto.DirCreateRequest:
		return proto.DirCreateResponse{OK: true}, nil
	case proto.DirDeleteRequest:
		return proto.DirDeleteResponse{OK: true}, nil
	case proto.FileDeleteRequest:
		return proto.FileDeleteResponse{OK: true}, nil
	case proto.ItemRenameRequest:
		return proto.ItemRenameResponse{OK: true}, nil
	}
	return nil, errors.New("unexpected")
}

func newExec(reply func(proto.Message) (proto.Message, error)) (*Executor, *scripted) {
	s := &scripted{connected: true, reply: reply}
	return New(s, Options{}), s
}

func TestDisconnected(t *testing.T) {
	s := &scripted{reply: okReply}
	x := New(s, Options{})
	ctx := context.Background()
	checks := map[string]error{
		"mkdir": x.CreateDirectory(ctx, pathutil.Parse("/a")),
		"rm":    x.DeleteFile(ctx, pathutil.Parse("/a")),
		"rmdir": x.DeleteDirectory(ctx, pathutil.Parse("/a")),
		"empty": x.EmptyTrash(ctx, drive.Empty()),
	}
	_, checks["rename"] = x.RenameItem(ctx, pathutil.Parse("/a"), "b")
	_, checks["trash"] = x.MoveToTrash(ctx, pathutil.Parse("/a"))
	for op, err := range checks {
		if !errors.Is(err, session.ErrTransportUnavailable) {
			t.Errorf("%s err = %v", op, err)
		}
	}
	if len(s.reqs) != 0 {
		t.Errorf("sent %d requests while disconnected", len(s.reqs))
	}
}

func TestCreateDirectoryRejected(t *testing.T) {
	x, _ := newExec(func(proto.Message) (proto.Message, error) { return proto.DirCreateResponse{OK: false}, nil })
	err := x.CreateDirectory(context.Background(), pathutil.Parse("/a"))
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Op != "mkdir" || rej.Path.String() != "/a" {
		t.Fatalf("err = %v", err)
	}
}

func TestRenameItem(t *testing.T) {
	x, s := newExec(okReply)
	to, err := x.RenameItem(context.Background(), pathutil.Parse("/samples/kick.wav"), "Kick 01.wav")
	if err != nil {
		t.Fatalf("RenameItem: %v", err)
	}
	if to.String() != "/samples/Kick 01.wav" {
		t.Errorf("to = %s", to)
	}
	want := []proto.Message{proto.ItemRenameRequest{From: "/samples/kick.wav", To: "/samples/Kick 01.wav"}}
	if diff := cmp.Diff(want, s.reqs); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestRenameValidation(t *testing.T) {
	x, s := newExec(okReply)
	for _, name := range []string{"", "a/b", "a:b", "..", strings.Repeat("x", 256), "tab\there"} {
		_, err := x.RenameItem(context.Background(), pathutil.Parse("/a"), name)
		var ne *pathutil.NameError
		if !errors.As(err, &ne) || !errors.Is(err, pathutil.ErrInvalidName) {
			t.Errorf("RenameItem(%q) err = %v", name, err)
		}
	}
	if len(s.reqs) != 0 {
		t.Errorf("invalid names reached the device: %v", s.reqs)
	}
}

func TestRenameRejected(t *testing.T) {
	x, _ := newExec(func(proto.Message) (proto.Message, error) { return proto.ItemRenameResponse{OK: false}, nil })
	_, err := x.RenameItem(context.Background(), pathutil.Parse("/a"), "b")
	var rej *RejectedError
	if !errors.As(err, &rej) {
		t.Fatalf("err = %v", err)
	}
}

func TestMoveToTrashIgnoresExistingTrash(t *testing.T) {
	x, s := newExec(func(m proto.Message) (proto.Message, error) {
		if _, ok := m.(proto.DirCreateRequest); ok {
			return proto.DirCreateResponse{OK: false}, nil
		}
		return okReply(m)
	})
	to, err := x.MoveToTrash(context.Background(), pathutil.Parse("/samples/kick.wav"))
	if err != nil {
		t.Fatalf("MoveToTrash: %v", err)
	}
	if to.String() != "/TRASH/kick.wav" {
		t.Errorf("to = %s", to)
	}
	want := []proto.Message{
		proto.DirCreateRequest{Path: "/TRASH"},
		proto.ItemRenameRequest{From: "/samples/kick.wav", To: "/TRASH/kick.wav"},
	}
	if diff := cmp.Diff(want, s.reqs); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestMoveToTrashPropagatesTimeout(t *testing.T) {
	x, s := newExec(func(m proto.Message) (proto.Message, error) { return nil, session.ErrTimeout })
	_, err := x.MoveToTrash(context.Background(), pathutil.Parse("/a"))
	if !errors.Is(err, session.ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
	if len(s.reqs) != 1 {
		t.Errorf("rename sent after mkdir timeout: %v", s.reqs)
	}
}

func TestMoveToTrashRejectsRootAndTrash(t *testing.T) {
	x, s := newExec(okReply)
	for _, p := range []string{"/", "/TRASH"} {
		if _, err := x.MoveToTrash(context.Background(), pathutil.Parse(p)); !errors.Is(err, pathutil.ErrInvalidName) {
			t.Errorf("MoveToTrash(%s) err = %v", p, err)
		}
	}
	if len(s.reqs) != 0 {
		t.Errorf("sent %v", s.reqs)
	}
}

func trashDrive(t *testing.T) drive.Drive {
	t.Helper()
	d := drive.Empty()
	merge := func(p string, recs ...proto.DirEntry) {
		path := pathutil.Parse(p)
		var ok bool
		d, ok = d.Merge(path, drive.FromListing(path, recs))
		if !ok {
			t.Fatalf("merge %s", p)
		}
	}
	merge("/", proto.DirEntry{Kind: proto.KindDirectory, Name: "TRASH"}, proto.DirEntry{Kind: proto.KindFile, Name: "keep.wav"})
	merge("/TRASH",
		proto.DirEntry{Kind: proto.KindDirectory, Name: "old"},
		proto.DirEntry{Kind: proto.KindFile, Name: "a.wav"},
	)
	merge("/TRASH/old",
		proto.DirEntry{Kind: proto.KindFile, Name: "b.wav"},
		proto.DirEntry{Kind: proto.KindDirectory, Name: "deeper"},
	)
	return d
}

func TestEmptyTrashOrder(t *testing.T) {
	x, s := newExec(okReply)
	if err := x.EmptyTrash(context.Background(), trashDrive(t)); err != nil {
		t.Fatalf("EmptyTrash: %v", err)
	}
	want := []proto.Message{
		proto.FileDeleteRequest{Path: "/TRASH/old/b.wav"},
		proto.DirDeleteRequest{Path: "/TRASH/old/deeper"},
		proto.DirDeleteRequest{Path: "/TRASH/old"},
		proto.FileDeleteRequest{Path: "/TRASH/a.wav"},
	}
	if diff := cmp.Diff(want, s.reqs); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyTrashStopsAtFirstFailure(t *testing.T) {
	x, s := newExec(func(m proto.Message) (proto.Message, error) {
		if _, ok := m.(proto.DirDeleteRequest); ok {
			return proto.DirDeleteResponse{OK: false}, nil
		}
		return okReply(m)
	})
	err := x.EmptyTrash(context.Background(), trashDrive(t))
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Path.String() != "/TRASH/old/deeper" {
		t.Fatalf("err = %v", err)
	}
	if len(s.reqs) != 2 {
		t.Errorf("sent %d requests, want 2", len(s.reqs))
	}
}

func TestEmptyTrashSkipsUnknownKinds(t *testing.T) {
	d := drive.Empty()
	merge := func(p string, recs ...proto.DirEntry) {
		path := pathutil.Parse(p)
		var ok bool
		d, ok = d.Merge(path, drive.FromListing(path, recs))
		if !ok {
			t.Fatalf("merge %s", p)
		}
	}
	merge("/", proto.DirEntry{Kind: proto.KindDirectory, Name: "TRASH"})
	merge("/TRASH",
		proto.DirEntry{Kind: proto.EntryKind('X'), Name: "odd"},
		proto.DirEntry{Kind: proto.KindFile, Name: "a.wav"},
	)

	x, s := newExec(okReply)
	if err := x.EmptyTrash(context.Background(), d); err != nil {
		t.Fatalf("EmptyTrash: %v", err)
	}
	want := []proto.Message{proto.FileDeleteRequest{Path: "/TRASH/a.wav"}}
	if diff := cmp.Diff(want, s.reqs); diff != "" {
		t.Errorf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyTrashWithoutTrash(t *testing.T) {
	x, s := newExec(okReply)
	if err := x.EmptyTrash(context.Background(), drive.Empty()); err != nil {
		t.Fatal(err)
	}
	if len(s.reqs) != 0 {
		t.Errorf("sent %v", s.reqs)
	}
}

func TestMismatchedResponse(t *testing.T) {
	x, _ := newExec(func(proto.Message) (proto.Message, error) { return proto.DirListResponse{}, nil })
	err := x.DeleteFile(context.Background(), pathutil.Parse("/a"))
	var me *proto.MismatchError
	if !errors.As(err, &me) || me.Want != proto.TypeFileDeleteResponse {
		t.Fatalf("err = %v", err)
	}
}

func TestQueries(t *testing.T) {
	x, _ := newExec(func(m proto.Message) (proto.Message, error) {
		switch req := m.(type) {
		case proto.DeviceRequest:
			return proto.DeviceResponse{ProductID: 12, Messages: []byte{1}, DeviceName: "Digitakt"}, nil
		case proto.VersionRequest:
			return proto.VersionResponse{Build: "7", Version: "1.51"}, nil
		case proto.SampleFileInfoRequest:
			return proto.SampleFileInfoResponse{OK: true, Hash: req.Hash, Size: req.Size, Path: "/s/k.wav"}, nil
		}
		return nil, errors.New("unexpected")
	})
	ctx := context.Background()
	if info, err := x.DeviceInfo(ctx); err != nil || info.DeviceName != "Digitakt" {
		t.Errorf("DeviceInfo = %+v, %v", info, err)
	}
	if v, err := x.Version(ctx); err != nil || v.Version != "1.51" {
		t.Errorf("Version = %+v, %v", v, err)
	}
	if si, err := x.SampleFileInfo(ctx, 5, 6); err != nil || si.Path != "/s/k.wav" || si.Hash != 5 {
		t.Errorf("SampleFileInfo = %+v, %v", si, err)
	}
}
