package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"elkdrive/internal/drive"
	"elkdrive/internal/pathutil"
	"elkdrive/internal/proto"
)

// fakeDevice answers DirList requests from a fixed table.
type fakeDevice struct {
	mu      sync.Mutex
	dirs    map[string][]proto.DirEntry
	wrong   map[string]proto.Message // path -> response of the wrong variant
	listed  []string
	gate    chan struct{} // when set, every request waits for it
	started chan struct{}
}

func (f *fakeDevice) Connected() bool { return true }

func (f *fakeDevice) Request(ctx context.Context, m proto.Message) (proto.Message, error) {
	req, ok := m.(proto.DirListRequest)
	if !ok {
		return nil, errors.New("unexpected request")
	}
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listed = append(f.listed, req.Path)
	if w, ok := f.wrong[req.Path]; ok {
		return w, nil
	}
	return proto.DirListResponse{Entries: append([]proto.DirEntry{}, f.dirs[req.Path]...)}, nil
}

func d(name string) proto.DirEntry { return proto.DirEntry{Kind: proto.KindDirectory, Name: name} }

func f(name string, size uint32) proto.DirEntry {
	return proto.DirEntry{Kind: proto.KindFile, Name: name, Size: size, Hash: size * 7}
}

func newDevice() *fakeDevice {
	return &fakeDevice{dirs: map[string][]proto.DirEntry{
		"/":              {d("samples"), d("TRASH"), f("a.wav", 10)},
		"/samples":       {d("kicks"), f("s.wav", 20), f("s.wav", 999)},
		"/samples/kicks": {f("k1.wav", 30), f("k2.wav", 40)},
		"/TRASH":         {},
	}}
}

func paths(d drive.Drive) []string {
	var out []string
	_ = d.Walk(pathutil.Root, func(e *drive.Entry) error {
		out = append(out, e.Path.String())
		return nil
	})
	return out
}

func TestScanBreadthFirst(t *testing.T) {
	dev := newDevice()
	var progress []Progress
	s := New(dev, Options{OnProgress: func(p Progress) { progress = append(progress, p) }})

	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if diff := cmp.Diff([]string{"/", "/samples", "/TRASH", "/samples/kicks"}, dev.listed); diff != "" {
		t.Errorf("listing order mismatch (-want +got):\n%s", diff)
	}
	want := []string{"/", "/samples", "/samples/kicks", "/samples/kicks/k1.wav", "/samples/kicks/k2.wav",
		"/samples/s.wav", "/TRASH", "/a.wav"}
	if diff := cmp.Diff(want, paths(got)); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
	if got.Root.ItemSize != 100 {
		t.Errorf("root size = %d, want 100 (duplicate name must not count)", got.Root.ItemSize)
	}
	e, ok := s.EntryAt(pathutil.Parse("/samples/s.wav"))
	if !ok || e.ItemSize != 20 {
		t.Errorf("first duplicate did not win: %+v", e)
	}

	last := progress[len(progress)-1]
	if last.Fraction() != 1 || last.Visited != 4 {
		t.Errorf("final progress = %+v", last)
	}
	if first := progress[0]; first.Visited != 1 || first.Queued != 2 {
		t.Errorf("first progress = %+v", first)
	}
}

func TestScanMismatchKeepsSnapshot(t *testing.T) {
	dev := newDevice()
	s := New(dev, Options{})
	before, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	dev.wrong = map[string]proto.Message{"/samples/kicks": proto.DirCreateResponse{OK: true}}
	_, err = s.Scan(context.Background())
	var me *proto.MismatchError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want MismatchError", err)
	}
	if s.Drive().Root != before.Root {
		t.Error("failed scan replaced the snapshot")
	}
}

func TestConcurrentScanRejected(t *testing.T) {
	dev := newDevice()
	dev.gate = make(chan struct{})
	dev.started = make(chan struct{}, 16)
	s := New(dev, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(context.Background())
		done <- err
	}()
	<-dev.started
	if _, err := s.Scan(context.Background()); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("second Scan err = %v", err)
	}
	close(dev.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Scan: %v", err)
	}
}

func TestRefreshSplices(t *testing.T) {
	dev := newDevice()
	s := New(dev, Options{})
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	dev.dirs["/samples"] = []proto.DirEntry{d("kicks"), d("hats"), f("clap.wav", 5)}
	got, err := s.Refresh(context.Background(), pathutil.Parse("/samples"))
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	kicks, ok := got.Lookup(pathutil.Parse("/samples/kicks"))
	if !ok || len(kicks.Children()) != 2 {
		t.Fatalf("kicks lost its children: %+v", kicks)
	}
	if _, ok := s.EntryAt(pathutil.Parse("/samples/hats")); !ok {
		t.Error("new directory missing after refresh")
	}
	if _, ok := s.EntryAt(pathutil.Parse("/samples/s.wav")); ok {
		t.Error("removed file still present")
	}
	if got.Root.ItemSize != 10+70+5 {
		t.Errorf("root size = %d", got.Root.ItemSize)
	}

	if _, err := s.Refresh(context.Background(), pathutil.Parse("/nope")); !errors.Is(err, ErrNotFound) {
		t.Errorf("refresh of unknown path err = %v", err)
	}
}

func TestRescanSubtree(t *testing.T) {
	dev := newDevice()
	s := New(dev, Options{})
	if _, err := s.Scan(context.Background()); err != nil {
		t.Fatal(err)
	}

	dev.dirs["/samples/kicks"] = []proto.DirEntry{d("808")}
	dev.dirs["/samples/kicks/808"] = []proto.DirEntry{f("boom.wav", 1000)}
	dev.listed = nil

	got, err := s.Rescan(context.Background(), pathutil.Parse("/samples/kicks"))
	if err != nil {
		t.Fatalf("Rescan: %v", err)
	}
	if diff := cmp.Diff([]string{"/samples/kicks", "/samples/kicks/808"}, dev.listed); diff != "" {
		t.Errorf("rescan listed (-want +got):\n%s", diff)
	}
	if _, ok := got.Lookup(pathutil.Parse("/samples/kicks/808/boom.wav")); !ok {
		t.Error("new file missing")
	}
	if got.Root.ItemSize != 10+20+1000 {
		t.Errorf("root size = %d", got.Root.ItemSize)
	}
}

func TestScanCancelled(t *testing.T) {
	s := New(newDevice(), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if !s.Drive().IsEmpty() {
		t.Error("cancelled scan published a snapshot")
	}
}
