package internal

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	roomIDAlphabet = "abcdefghijklmnopqrstuvwxyz123456789!@#$%&*"
	roomIDLength   = 7
	createAttempts = 8
	closedByOwner  = "Room closed by owner"
)

var (
	// ErrRoomNotFound is returned for lookups and closes against unknown ids.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotOwner is returned when a non-owner attempts an owner-only action.
	ErrNotOwner = errors.New("only the owner can close the room")
	// ErrRoomIDExhausted is returned when id generation keeps colliding.
	ErrRoomIDExhausted = errors.New("could not allocate room id")

	errRoomClosed = errors.New("room is closing")
)

// Registry owns the id→room map for all live rooms.
type Registry struct {
	mutex sync.RWMutex
	rooms map[string]*Room

	// newID is swapped out by tests to force collisions.
	newID func() (string, error)
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		newID: randomRoomID,
	}
}

// randomRoomID draws each character from the fixed alphabet with
// crypto/rand, matching the invite-key format clients expect.
func randomRoomID() (string, error) {
	id := make([]byte, roomIDLength)
	max := big.NewInt(int64(len(roomIDAlphabet)))
	for i := range id {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		id[i] = roomIDAlphabet[n.Int64()]
	}
	return string(id), nil
}

// Create allocates a room with a fresh id, retrying a bounded number of
// times on collision with a live room.
func (registry *Registry) Create(owner string) (*Room, error) {
	for attempt := 0; attempt < createAttempts; attempt++ {
		id, err := registry.newID()
		if err != nil {
			return nil, err
		}
		registry.mutex.Lock()
		if _, exists := registry.rooms[id]; !exists {
			room := newRoom(id, owner)
			registry.rooms[id] = room
			registry.mutex.Unlock()
			return room, nil
		}
		registry.mutex.Unlock()
	}
	return nil, ErrRoomIDExhausted
}

// Get returns the live room for an id, or nil.
func (registry *Registry) Get(id string) *Room {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	return registry.rooms[id]
}

// Count reports how many rooms are currently live.
func (registry *Registry) Count() int {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	return len(registry.rooms)
}

// Close tears a room down on the owner's request: the room disappears from
// the registry, members get a closing notice, and every member connection is
// forcibly terminated. The room is flagged closed under its own lock so a
// join racing the close cannot land in a half-dead room.
func (registry *Registry) Close(id, requester string) error {
	registry.mutex.Lock()
	room, exists := registry.rooms[id]
	if !exists {
		registry.mutex.Unlock()
		return ErrRoomNotFound
	}
	if room.owner != requester {
		registry.mutex.Unlock()
		return ErrNotOwner
	}
	delete(registry.rooms, id)
	registry.mutex.Unlock()

	sessions := room.markClosed()
	notice, err := json.Marshal(systemEvent(closedByOwner, ""))
	if err == nil {
		for _, session := range sessions {
			session.trySend(outboundFrame{messageType: websocket.TextMessage, payload: notice})
		}
	} else {
		log.Printf("room %s: encode close notice: %v", id, err)
	}
	for _, session := range sessions {
		session.shutdown()
	}
	return nil
}
