package session

import (
	"testing"
	"time"

	"elkdrive/internal/proto"
)

func TestHistoryRing(t *testing.T) {
	h := NewHistory(3)
	for i := 1; i <= 5; i++ {
		h.add(Exchange{MsgID: uint16(i), Request: proto.TypeDirListRequest})
	}
	got := h.Snapshot(0)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, e := range got {
		if want := uint16(i + 3); e.MsgID != want {
			t.Errorf("entry %d msg id = %d, want %d", i, e.MsgID, want)
		}
	}
	if last := h.Snapshot(1); len(last) != 1 || last[0].MsgID != 5 || last[0].ID != 5 {
		t.Errorf("Snapshot(1) = %+v", last)
	}
}

func TestHistoryFiltered(t *testing.T) {
	h := NewHistory(10)
	h.add(Exchange{MsgID: 1, Request: proto.TypeDirListRequest})
	h.add(Exchange{MsgID: 2, Request: proto.TypeDirCreateRequest, Error: "request timed out"})
	h.add(Exchange{MsgID: 3, Request: proto.TypeDirListRequest, Error: "request timed out"})
	h.add(Exchange{MsgID: 4, Request: proto.TypeDirListRequest})

	got := h.Filtered(Filter{Limit: 2})
	if len(got) != 2 || got[0].MsgID != 3 || got[1].MsgID != 4 {
		t.Errorf("last two = %+v", got)
	}
	got = h.Filtered(Filter{OnlyErrors: true})
	if len(got) != 2 || got[0].MsgID != 2 || got[1].MsgID != 3 {
		t.Errorf("only errors = %+v", got)
	}
	got = h.Filtered(Filter{OnlyErrors: true, Limit: 1})
	if len(got) != 1 || got[0].MsgID != 3 {
		t.Errorf("last error = %+v", got)
	}
}

func TestHistorySubscribe(t *testing.T) {
	h := NewHistory(4)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.add(Exchange{MsgID: 9})
	select {
	case e := <-ch:
		if e.MsgID != 9 {
			t.Fatalf("got %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no exchange delivered")
	}
	cancel()
	if _, ok := <-ch; ok {
		t.Fatal("channel open after cancel")
	}
}
