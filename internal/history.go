package internal

// history is a fixed-capacity ring of room events. Appending past capacity
// overwrites the oldest entry, so eviction is O(1) instead of re-slicing a
// growing list on every insert.
type history struct {
	buf   []Event
	start int
	count int
}

func newHistory(capacity int) *history {
	return &history{buf: make([]Event, capacity)}
}

func (h *history) append(ev Event) {
	if h.count < len(h.buf) {
		h.buf[(h.start+h.count)%len(h.buf)] = ev
		h.count++
		return
	}
	h.buf[h.start] = ev
	h.start = (h.start + 1) % len(h.buf)
}

// items returns the retained events oldest-first as a fresh slice, never nil.
func (h *history) items() []Event {
	out := make([]Event, 0, h.count)
	for i := 0; i < h.count; i++ {
		out = append(out, h.buf[(h.start+i)%len(h.buf)])
	}
	return out
}

func (h *history) clear() {
	h.start = 0
	h.count = 0
}

func (h *history) len() int {
	return h.count
}
