package internal

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// maxHistory caps how many chat/file-header events a room retains for late
// joiners; the oldest entries are evicted first.
const maxHistory = 200

// Room is a single live chat and file-relay session: one immutable owner, a
// membership map keyed by participant name, and a bounded event history.
// All state is guarded by its own mutex; rooms never lock each other.
type Room struct {
	id    string
	owner string

	mutex    sync.Mutex
	members  map[string]*Session
	messages *history
	closed   bool
}

func newRoom(id, owner string) *Room {
	return &Room{
		id:       id,
		owner:    owner,
		members:  make(map[string]*Session),
		messages: newHistory(maxHistory),
	}
}

func (room *Room) ID() string    { return room.id }
func (room *Room) Owner() string { return room.owner }

// MemberNames lists current participants (unordered).
func (room *Room) MemberNames() []string {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	names := make([]string, 0, len(room.members))
	for name := range room.members {
		names = append(names, name)
	}
	return names
}

// join registers the session under its name and queues its private history
// frame in the same critical section, so every event is either inside that
// frame or queued live after it, never both. A later join with a name that is
// already present supersedes the earlier session, which is returned so the
// caller can force-close it. Joining a room mid-close fails.
func (room *Room) join(name string, session *Session) (*Session, error) {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	if room.closed {
		return nil, errRoomClosed
	}
	previous := room.members[name]
	room.members[name] = session
	session.sendHistory(room.messages.items())
	return previous, nil
}

// leave removes the member entry only if it still points at this exact
// session; a superseded or already-dropped session is a no-op. Reports
// whether an entry was removed.
func (room *Room) leave(name string, session *Session) bool {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	if current, ok := room.members[name]; ok && current == session {
		delete(room.members, name)
		return true
	}
	return false
}

func (room *Room) addHistory(ev Event) {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	room.messages.append(ev)
}

func (room *Room) historyItems() []Event {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	return room.messages.items()
}

func (room *Room) historyLen() int {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	return room.messages.len()
}

func (room *Room) clearHistory() {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	room.messages.clear()
}

func (room *Room) isClosed() bool {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	return room.closed
}

// broadcast delivers an event to every current member. Delivery to one member
// never blocks on another; a member whose send fails is dropped from
// membership in the same pass.
func (room *Room) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("room %s: encode broadcast: %v", room.id, err)
		return
	}
	room.deliver(outboundFrame{messageType: websocket.TextMessage, payload: payload}, nil)
}

// relayBinary forwards raw file bytes to every member except the sender.
// Binary frames are live-only and never enter history.
func (room *Room) relayBinary(sender *Session, payload []byte) {
	room.deliver(outboundFrame{messageType: websocket.BinaryMessage, payload: payload}, sender)
}

// deliver fans a frame out to a snapshot of the membership. The snapshot is
// taken under the lock, the sends happen outside it, and members that could
// not accept the frame are reconciled out under the lock afterwards, so a
// broadcast never stalls unrelated joins and leaves.
func (room *Room) deliver(frame outboundFrame, except *Session) {
	room.mutex.Lock()
	snapshot := make([]*Session, 0, len(room.members))
	for _, member := range room.members {
		if member != except {
			snapshot = append(snapshot, member)
		}
	}
	room.mutex.Unlock()

	var dead []*Session
	for _, member := range snapshot {
		if !member.trySend(frame) {
			dead = append(dead, member)
		}
	}
	if len(dead) == 0 {
		return
	}

	room.mutex.Lock()
	for _, member := range dead {
		if current, ok := room.members[member.name]; ok && current == member {
			delete(room.members, member.name)
			member.dropped.Store(true)
		}
	}
	room.mutex.Unlock()

	for _, member := range dead {
		member.shutdown()
	}
}

// markClosed flags the room so no further join can succeed, empties the
// membership, and hands the final member snapshot to the caller for
// notification and forced close.
func (room *Room) markClosed() []*Session {
	room.mutex.Lock()
	defer room.mutex.Unlock()
	room.closed = true
	sessions := make([]*Session, 0, len(room.members))
	for _, member := range room.members {
		sessions = append(sessions, member)
	}
	room.members = make(map[string]*Session)
	return sessions
}
