// Package id provides centralized ID generation for the backend.
//
// Two formats are in use:
//   - ULIDs for identifiers that benefit from time ordering: generated room
//     tokens, request IDs, trace and span IDs. They carry a type prefix
//     (room_*, req_*, span_*) so they are readable in logs.
//   - UUIDv4 for connection IDs, which only need to be unique for the lifetime
//     of the process and are never sorted.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ============================================================================
// Type-Safe ID Wrappers
// ============================================================================

// RoomID identifies a collaborative room
type RoomID string

// ConnID identifies a single event channel connection
type ConnID string

// RequestID identifies an API request or compile request
type RequestID string

// SpanID identifies a tracing span
type SpanID string

// ============================================================================
// ID Prefixes
// ============================================================================

const (
	RoomPrefix    = "room"
	RequestPrefix = "req"
	SpanPrefix    = "span"
)

// ============================================================================
// ULID Generator
// ============================================================================

// Generator generates monotonic ULIDs with optional prefixes. IDs made in
// the same millisecond still sort in creation order.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// ============================================================================
// Typed ID Generators
// ============================================================================

// NewRoomID generates a room token for rooms created without a client-chosen id
func NewRoomID() RoomID {
	return RoomID(Default().GenerateWithPrefix(RoomPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

// NewConnID generates a connection ID
func NewConnID() ConnID {
	return ConnID(uuid.NewString())
}

func (id RoomID) String() string    { return string(id) }
func (id ConnID) String() string    { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id SpanID) String() string    { return string(id) }

// ============================================================================
// Parsing and Validation
// ============================================================================

// Parse parses a "<prefix>_<ULID>" string, checking the prefix
func Parse(prefix, id string) (ulid.ULID, error) {
	body, ok := strings.CutPrefix(id, prefix+"_")
	if !ok {
		return ulid.ULID{}, fmt.Errorf("id %q does not start with %s_", id, prefix)
	}
	return ulid.ParseStrict(body)
}

// IsValid reports whether id is a well-formed ULID carrying prefix
func IsValid(prefix, id string) bool {
	_, err := Parse(prefix, id)
	return err == nil
}
