package room

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrRoomNotFound is returned when an operation names a room that was never created.
	ErrRoomNotFound = errors.New("room does not exist")
	// ErrInvalidRoomID is returned for empty room ids.
	ErrInvalidRoomID = errors.New("room id must not be empty")
	// ErrStaleRevision is returned when a compile output arrives after the
	// buffer it was run against has been replaced.
	ErrStaleRevision = errors.New("room buffer changed during the run")
)

// Room is the registry's record of one shared buffer
type Room struct {
	ID        string
	Buffer    string
	Members   map[string]struct{} // connection ids
	CreatedAt time.Time
	UpdatedAt time.Time
	Revision  uint64 // incremented on every buffer write
}

// Snapshot is a read-only copy of a room handed to callers
type Snapshot struct {
	ID        string    `json:"id"`
	Buffer    string    `json:"buffer"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Revision  uint64    `json:"revision"`
}

// Summary describes a room without its buffer
type Summary struct {
	ID          string    `json:"id"`
	MemberCount int       `json:"member_count"`
	BufferBytes int       `json:"buffer_bytes"`
	UpdatedAt   time.Time `json:"updated_at"`
	Revision    uint64    `json:"revision"`
}

// Stats holds registry-wide counters
type Stats struct {
	Rooms         int    `json:"rooms"`
	Subscriptions int    `json:"subscriptions"`
	Connections   int    `json:"connections"`
	Edits         uint64 `json:"edits"`
	Compiles      uint64 `json:"compiles"`
}

func (r *Room) snapshot() Snapshot {
	return Snapshot{
		ID:        r.ID,
		Buffer:    r.Buffer,
		Members:   r.memberList(""),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Revision:  r.Revision,
	}
}

func (r *Room) summary() Summary {
	return Summary{
		ID:          r.ID,
		MemberCount: len(r.Members),
		BufferBytes: len(r.Buffer),
		UpdatedAt:   r.UpdatedAt,
		Revision:    r.Revision,
	}
}

// memberList returns the sorted member ids, leaving out exclude
func (r *Room) memberList(exclude string) []string {
	members := make([]string, 0, len(r.Members))
	for conn := range r.Members {
		if conn != exclude {
			members = append(members, conn)
		}
	}
	sort.Strings(members)
	return members
}

func (r *Room) write(text string, now time.Time) {
	r.Buffer = text
	r.UpdatedAt = now
	r.Revision++
}
