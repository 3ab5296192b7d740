package internal

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// maxFrameSize must fit a relayed file in a single binary frame.
	maxFrameSize  = 16 * 1024 * 1024
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// outboundFrame is one queued websocket write: either an encoded JSON event
// or raw relayed file bytes.
type outboundFrame struct {
	messageType int
	payload     []byte
}

// Session is one participant connection to a room. It moves through
// connecting → active → terminated; termination bookkeeping runs exactly once
// no matter how many failure paths race.
type Session struct {
	room *Room
	conn *websocket.Conn
	name string
	send chan outboundFrame
	// done signals termination. The send channel itself is never closed, so
	// a broadcast racing a disconnect can still attempt a queue without
	// touching a closed channel.
	done chan struct{}

	stopOnce    sync.Once
	cleanupOnce sync.Once
	// dropped is set by the room when a broadcast pass removed this member.
	dropped      atomic.Bool
	onDisconnect func()
}

func newSession(room *Room, conn *websocket.Conn, name string, onDisconnect func()) *Session {
	return &Session{
		room:         room,
		conn:         conn,
		name:         name,
		send:         make(chan outboundFrame, sendQueueSize),
		done:         make(chan struct{}),
		onDisconnect: onDisconnect,
	}
}

// ServeWS upgrades /ws/comuni/{id}?user=NAME into a room session. A missing
// name or unknown room rejects the handshake with a policy-violation close.
func (s *Server) ServeWS(writer http.ResponseWriter, request *http.Request) {
	roomID := strings.TrimPrefix(request.URL.Path, "/ws/comuni/")
	name := request.URL.Query().Get("user")
	room := s.registry.Get(roomID)

	conn, err := upgrader.Upgrade(writer, request, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}
	if name == "" || room == nil {
		rejectHandshake(conn, "room id and user are required")
		return
	}

	s.metrics.IncConn()
	s.presence.Increment(name)
	session := newSession(room, conn, name, func() {
		s.metrics.DecConn()
		s.presence.Decrement(name)
	})

	previous, err := room.join(name, session)
	if err != nil {
		session.onDisconnect()
		rejectHandshake(conn, "room is closed")
		return
	}
	if previous != nil {
		// a reconnect under the same name supersedes the old connection
		previous.shutdown()
	}

	go session.writePump()

	room.broadcast(systemEvent(name+" joined", name))

	go session.readPump()
}

func rejectHandshake(conn *websocket.Conn, reason string) {
	deadline := time.Now().Add(writeWait)
	message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, message, deadline)
	_ = conn.Close()
}

// trySend queues a frame without blocking; a full queue or a terminated
// session counts as a delivery failure.
func (session *Session) trySend(frame outboundFrame) bool {
	select {
	case <-session.done:
		return false
	default:
	}
	select {
	case session.send <- frame:
		return true
	default:
		return false
	}
}

// sendHistory queues the room's retained events for this connection only.
// Called with the room lock held; it touches nothing but the session queue.
func (session *Session) sendHistory(items []Event) {
	payload, err := json.Marshal(historyEnvelope{Type: eventHistory, Items: items})
	if err != nil {
		log.Printf("room %s: encode history for %s: %v", session.room.id, session.name, err)
		return
	}
	session.trySend(outboundFrame{messageType: websocket.TextMessage, payload: payload})
}

// shutdown tells the session to stop. The write pump drains anything already
// queued, emits a close frame, and tears the connection down.
func (session *Session) shutdown() {
	session.stopOnce.Do(func() {
		close(session.done)
	})
}

// terminate runs the one-time exit bookkeeping shared by every ending: a
// normal close, a read error, supersession, or a forced close from the owner.
// Membership is removed before the stop signal so no broadcast can snapshot a
// member that is already shutting down.
func (session *Session) terminate() {
	session.cleanupOnce.Do(func() {
		wasMember := session.room.leave(session.name, session) || session.dropped.Load()
		session.shutdown()
		_ = session.conn.Close()

		if session.onDisconnect != nil {
			session.onDisconnect()
		}
		if !wasMember || session.room.isClosed() {
			// superseded sessions and rooms mid-close announce nothing here
			return
		}
		if session.name == session.room.owner {
			session.room.clearHistory()
			session.room.broadcast(clearEvent())
			session.room.broadcast(systemEvent("Owner left. Chat cleared", ""))
		} else {
			session.room.broadcast(systemEvent(session.name+" left", session.name))
		}
	})
}

func (session *Session) readPump() {
	defer session.terminate()
	session.conn.SetReadLimit(maxFrameSize)
	_ = session.conn.SetReadDeadline(time.Now().Add(pongWait))
	session.conn.SetPongHandler(func(string) error {
		return session.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		messageType, payload, err := session.conn.ReadMessage()
		if err != nil {
			// normal close or read error; the deferred cleanup handles it.
			return
		}
		switch messageType {
		case websocket.TextMessage:
			session.handleTextFrame(payload)
		case websocket.BinaryMessage:
			session.room.relayBinary(session, payload)
		}
	}
}

// handleTextFrame dispatches one structured frame. Frames that fail to parse
// or carry an unknown type are logged and dropped, never fatal.
func (session *Session) handleTextFrame(payload []byte) {
	var incoming inboundEvent
	if err := json.Unmarshal(payload, &incoming); err != nil {
		log.Printf("room %s: bad frame from %s: %v", session.room.id, session.name, err)
		return
	}
	switch incoming.Type {
	case eventChat:
		ev := chatEvent(session.name, incoming.Text)
		session.room.addHistory(ev)
		session.room.broadcast(ev)
	case eventFile:
		if incoming.Filename == "" {
			return
		}
		// announces that one raw binary frame with the file bytes follows
		ev := fileHeaderEvent(session.name, incoming.Filename)
		session.room.addHistory(ev)
		session.room.broadcast(ev)
	default:
		log.Printf("room %s: ignoring frame type %q from %s", session.room.id, incoming.Type, session.name)
	}
}

func (session *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		session.terminate()
	}()
	for {
		select {
		case frame := <-session.send:
			_ = session.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := session.conn.WriteMessage(frame.messageType, frame.payload); err != nil {
				return
			}
		case <-session.done:
			session.drainQueue()
			_ = session.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = session.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = session.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := session.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// drainQueue flushes frames queued before the stop signal, so a notice sent
// just ahead of a shutdown still reaches the peer.
func (session *Session) drainQueue() {
	for {
		select {
		case frame := <-session.send:
			_ = session.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := session.conn.WriteMessage(frame.messageType, frame.payload); err != nil {
				return
			}
		default:
			return
		}
	}
}
