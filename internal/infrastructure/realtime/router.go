package realtime

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrRouterClosed is returned by Emit after Close.
var ErrRouterClosed = errors.New("realtime: router closed")

// Router owns every room membership: conversation rooms map to the connections
// joined to them, and each connection tracks its rooms so a disconnect can leave them all.
// A user may hold several connections at once.
type Router struct {
	mu           sync.RWMutex
	closed       bool
	sessions     map[string]*Connection            // sessionID -> connection
	rooms        map[string]map[string]*Connection // conversationID -> sessionID -> connection
	sessionRooms map[string]map[string]struct{}    // sessionID -> set of conversationIDs
}

// NewRouter constructs an initialized Router.
func NewRouter() *Router {
	return &Router{
		sessions:     make(map[string]*Connection),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers an authenticated connection and starts its write loop.
// It returns false when the router is already closed.
func (r *Router) Attach(conn *Connection) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.sessions[conn.ID] = conn
	r.sessionRooms[conn.ID] = make(map[string]struct{})
	r.mu.Unlock()

	conn.Start()
	return true
}

// Detach removes the connection from every room it joined. Idempotent.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	r.detachLocked(conn.ID)
	r.mu.Unlock()
}

// Join adds the connection to the conversation room, creating the room on first join.
// It returns false when the connection is not attached.
func (r *Router) Join(conversationID string, conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn.ID]; !ok {
		return false
	}

	room := r.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		r.rooms[conversationID] = room
	}
	room[conn.ID] = conn
	r.sessionRooms[conn.ID][conversationID] = struct{}{}
	return true
}

// Leave removes the connection from the conversation room. Leaving a room the
// connection never joined is a no-op.
func (r *Router) Leave(conversationID string, conn *Connection) {
	r.mu.Lock()
	r.leaveLocked(conversationID, conn.ID)
	r.mu.Unlock()
}

// Emit queues payload on every connection in the conversation room and reports
// how many accepted it. An empty or unknown room yields 0 and no error.
func (r *Router) Emit(conversationID string, payload []byte) (int, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return 0, ErrRouterClosed
	}
	room := r.rooms[conversationID]
	targets := make([]*Connection, 0, len(room))
	for _, conn := range room {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

// RoomSize reports how many connections are joined to the conversation room.
func (r *Router) RoomSize(conversationID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[conversationID])
}

// RoomsOf lists the rooms the connection is joined to.
func (r *Router) RoomsOf(conn *Connection) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sessionRooms[conn.ID]))
	for id := range r.sessionRooms[conn.ID] {
		out = append(out, id)
	}
	return out
}

// Close terminates all tracked connections and rejects further emits.
func (r *Router) Close() {
	r.mu.Lock()
	r.closed = true
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	r.sessions = make(map[string]*Connection)
	r.rooms = make(map[string]map[string]*Connection)
	r.sessionRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

func (r *Router) detachLocked(sessionID string) {
	if _, ok := r.sessions[sessionID]; !ok {
		return
	}
	delete(r.sessions, sessionID)

	for roomID := range r.sessionRooms[sessionID] {
		r.leaveLocked(roomID, sessionID)
	}
	delete(r.sessionRooms, sessionID)
}

func (r *Router) leaveLocked(conversationID string, sessionID string) {
	room := r.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(r.rooms, conversationID)
	}
	if memberships, ok := r.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
	}
}
