package notify

import (
	"log/slog"
	"sync"
)

// textMessage matches websocket.TextMessage; declared here so the room
// registry does not depend on the websocket package.
const textMessage = 1

// Conn is the subset of a websocket connection the registry needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Rooms maps a transaction reference to the set of live observer
// connections interested in it. Purely in-memory: the registry is
// rebuilt from scratch on restart, which is acceptable because the whole
// layer is a realtime convenience, not the source of truth.
type Rooms struct {
	mu     sync.Mutex
	rooms  map[string]map[Conn]struct{}
	logger *slog.Logger
}

// NewRooms constructs an empty connection registry.
func NewRooms(logger *slog.Logger) *Rooms {
	return &Rooms{rooms: make(map[string]map[Conn]struct{}), logger: logger}
}

// Join registers a connection as an observer of the room.
func (r *Rooms) Join(room string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms[room] == nil {
		r.rooms[room] = make(map[Conn]struct{})
	}
	r.rooms[room][conn] = struct{}{}
}

// Leave removes a connection from the room, dropping the room entirely
// once empty. Safe to call for connections that never joined.
func (r *Rooms) Leave(room string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns, ok := r.rooms[room]
	if !ok {
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(r.rooms, room)
	}
}

// Broadcast writes the payload to every connection in the room.
// Unreachable connections are closed and dropped silently. Returns the
// number of successful deliveries.
func (r *Rooms) Broadcast(room string, payload []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.rooms[room]
	if !ok {
		return 0
	}

	var delivered int
	for conn := range conns {
		if err := conn.WriteMessage(textMessage, payload); err != nil {
			r.logger.Warn("dropping unreachable observer", "room", room, "error", err)
			conn.Close()
			delete(conns, conn)
			continue
		}
		delivered++
	}
	if len(conns) == 0 {
		delete(r.rooms, room)
	}
	return delivered
}

// Size reports the number of connections currently in the room.
func (r *Rooms) Size(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[room])
}
