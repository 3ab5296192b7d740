package internal

import "time"

// Event is the JSON envelope broadcast to room members. History keeps chat
// and file-header events only; system and clear events are live-only.
type Event struct {
	Type     string `json:"type"`
	From     string `json:"from,omitempty"`
	User     string `json:"user,omitempty"`
	Text     string `json:"text,omitempty"`
	Filename string `json:"filename,omitempty"`
	Ts       int64  `json:"ts,omitempty"`
}

const (
	eventChat       = "chat"
	eventFile       = "file"
	eventFileHeader = "file-header"
	eventSystem     = "system"
	eventHistory    = "history"
	eventClear      = "clear"
)

// historyEnvelope is sent privately to a joining member; Items is always
// present, even when empty.
type historyEnvelope struct {
	Type  string  `json:"type"`
	Items []Event `json:"items"`
}

// inboundEvent is what clients send over the websocket.
type inboundEvent struct {
	Type     string `json:"type"`
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

func chatEvent(from, text string) Event {
	return Event{Type: eventChat, From: from, Text: text, Ts: time.Now().Unix()}
}

func fileHeaderEvent(from, filename string) Event {
	return Event{Type: eventFileHeader, From: from, Filename: filename, Ts: time.Now().Unix()}
}

func systemEvent(text, user string) Event {
	return Event{Type: eventSystem, Text: text, User: user}
}

func clearEvent() Event {
	return Event{Type: eventClear}
}
