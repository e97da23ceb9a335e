package room

import (
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/coderoom/backend/internal/infrastructure/monitoring"
)

// Registry owns every room's buffer and membership. All reads and writes
// go through its mutex, so a buffer write and the member list returned for
// its broadcast always belong to the same state.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room               // Protected by mu
	connRooms map[string]map[string]struct{} // conn id -> room ids, protected by mu
	edits     uint64                         // Protected by mu
	compiles  uint64                         // Protected by mu
	metrics   *monitoring.Metrics
	now       func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		connRooms: make(map[string]map[string]struct{}),
		now:       time.Now,
	}
}

// WithMetrics adds metrics tracking to the registry
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Create initializes the room's buffer to "" and subscribes conn. Creating an
// id that already exists resets its buffer and keeps its members.
func (r *Registry) Create(roomID, conn string) (Snapshot, error) {
	if roomID == "" {
		return Snapshot{}, ErrInvalidRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	room, ok := r.rooms[roomID]
	if !ok {
		room = &Room{
			ID:        roomID,
			Members:   make(map[string]struct{}),
			CreatedAt: now,
		}
		r.rooms[roomID] = room
	}
	room.write("", now)
	r.subscribe(room, conn)

	if r.metrics != nil {
		r.metrics.IncRoomsCreated()
	}
	r.updateGauges()

	return room.snapshot(), nil
}

// Join subscribes conn to an existing room and returns its current buffer.
// Joining twice is harmless. Unknown rooms are never created.
func (r *Registry) Join(roomID, conn string) (string, error) {
	if roomID == "" {
		return "", ErrInvalidRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return "", ErrRoomNotFound
	}
	r.subscribe(room, conn)
	r.updateGauges()

	return room.Buffer, nil
}

// ApplyEdit overwrites the buffer with text and returns the members that
// must receive it, the sender excluded.
func (r *Registry) ApplyEdit(roomID, sender, text string) ([]string, error) {
	if roomID == "" {
		return nil, ErrInvalidRoomID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	room.write(text, r.now())
	r.edits++

	return room.memberList(sender), nil
}

// RecordCompileOutput overwrites the buffer with a successful run's output
// and returns every member. The write only lands if the buffer is still at
// revision, the value Revision reported when the run was dispatched;
// otherwise the buffer is left alone and ErrStaleRevision is returned along
// with the members, who still get the result.
func (r *Registry) RecordCompileOutput(roomID, output string, revision uint64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	r.compiles++
	if room.Revision != revision {
		return room.memberList(""), ErrStaleRevision
	}
	room.write(output, r.now())

	return room.memberList(""), nil
}

// Members returns the room's subscribers
func (r *Registry) Members(roomID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.memberList(""), nil
}

// IsMember reports whether conn is subscribed to the room
func (r *Registry) IsMember(roomID, conn string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	_, member := room.Members[conn]
	return member
}

// Leave unsubscribes conn from one room. The room and its buffer remain.
func (r *Registry) Leave(roomID, conn string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		r.unsubscribe(room, conn)
		r.updateGauges()
	}
}

// LeaveAll removes conn from every room it joined and returns those room ids
func (r *Registry) LeaveAll(conn string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.connRooms[conn]
	left := make([]string, 0, len(joined))
	for roomID := range joined {
		if room, ok := r.rooms[roomID]; ok {
			r.unsubscribe(room, conn)
			left = append(left, roomID)
		}
	}
	delete(r.connRooms, conn)
	sort.Strings(left)
	r.updateGauges()

	return left
}

// Get returns a copy of the room
func (r *Registry) Get(roomID string) (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return Snapshot{}, false
	}
	return room.snapshot(), true
}

// Revision returns the room's buffer revision
func (r *Registry) Revision(roomID string) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return 0, ErrRoomNotFound
	}
	return room.Revision, nil
}

// Exists reports whether the room was ever created
func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.rooms[roomID]
	return ok
}

// List returns a summary of every room, ordered by id
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]Summary, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room.summary())
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

// Count returns the number of rooms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Stats returns registry statistics
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{
		Rooms:         len(r.rooms),
		Subscriptions: r.subscriptions(),
		Connections:   len(r.connRooms),
		Edits:         r.edits,
		Compiles:      r.compiles,
	}
}

// subscribe must be called with mu held
func (r *Registry) subscribe(room *Room, conn string) {
	if conn == "" {
		return
	}
	room.Members[conn] = struct{}{}

	joined, ok := r.connRooms[conn]
	if !ok {
		joined = make(map[string]struct{})
		r.connRooms[conn] = joined
	}
	joined[room.ID] = struct{}{}
}

// unsubscribe must be called with mu held
func (r *Registry) unsubscribe(room *Room, conn string) {
	delete(room.Members, conn)

	if joined, ok := r.connRooms[conn]; ok {
		delete(joined, room.ID)
		if len(joined) == 0 {
			delete(r.connRooms, conn)
		}
	}
}

func (r *Registry) subscriptions() int {
	n := 0
	for _, room := range r.rooms {
		n += len(room.Members)
	}
	return n
}

// updateGauges must be called with mu held
func (r *Registry) updateGauges() {
	if r.metrics == nil {
		return
	}
	r.metrics.SetRoomsActive(len(r.rooms))
	r.metrics.SetRoomMembers(r.subscriptions())
}
