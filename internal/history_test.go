package internal

import (
	"fmt"
	"testing"
)

func TestHistoryAppendAndOrder(t *testing.T) {
	h := newHistory(5)
	for i := 0; i < 3; i++ {
		h.append(chatEvent("alice", fmt.Sprintf("msg-%d", i)))
	}
	items := h.items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, ev := range items {
		if want := fmt.Sprintf("msg-%d", i); ev.Text != want {
			t.Fatalf("item %d: expected %q, got %q", i, want, ev.Text)
		}
	}
}

func TestHistoryEvictsOldestAtCapacity(t *testing.T) {
	h := newHistory(3)
	for i := 0; i < 7; i++ {
		h.append(chatEvent("alice", fmt.Sprintf("msg-%d", i)))
	}
	if h.len() != 3 {
		t.Fatalf("expected length pinned at capacity 3, got %d", h.len())
	}
	items := h.items()
	wants := []string{"msg-4", "msg-5", "msg-6"}
	for i, want := range wants {
		if items[i].Text != want {
			t.Fatalf("item %d: expected %q, got %q", i, want, items[i].Text)
		}
	}
}

func TestHistoryItemsNeverNil(t *testing.T) {
	h := newHistory(4)
	if h.items() == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestHistoryClear(t *testing.T) {
	h := newHistory(4)
	h.append(chatEvent("alice", "hello"))
	h.append(fileHeaderEvent("bob", "song.mp3"))
	h.clear()
	if h.len() != 0 {
		t.Fatalf("expected empty history after clear, got %d", h.len())
	}
	h.append(chatEvent("carol", "fresh"))
	items := h.items()
	if len(items) != 1 || items[0].Text != "fresh" {
		t.Fatalf("expected a single fresh entry, got %+v", items)
	}
}

func TestRoomHistoryCap(t *testing.T) {
	room := newRoom("abc1234", "alice")
	for i := 0; i < maxHistory+50; i++ {
		room.addHistory(chatEvent("alice", fmt.Sprintf("msg-%d", i)))
	}
	if got := room.historyLen(); got != maxHistory {
		t.Fatalf("expected history capped at %d, got %d", maxHistory, got)
	}
	items := room.historyItems()
	if items[0].Text != "msg-50" {
		t.Fatalf("expected oldest surviving entry msg-50, got %q", items[0].Text)
	}
	if items[len(items)-1].Text != fmt.Sprintf("msg-%d", maxHistory+49) {
		t.Fatalf("unexpected newest entry %q", items[len(items)-1].Text)
	}
}
