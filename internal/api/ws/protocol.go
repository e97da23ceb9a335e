package ws

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/coderoom/backend/internal/shared/utils"
)

// Inbound events (client -> server)
const (
	EventCreateRoom = "createRoom"
	EventJoinRoom   = "joinRoom"
	EventCodeChange = "codeChange"
	EventCompile    = "compile"
)

// Outbound events (server -> client)
const (
	EventCodeUpdate    = "codeUpdate"
	EventCompileResult = "compileResult"
	EventError         = "error"
)

// MsgRoomNotFound is the error event text for unknown rooms.
const MsgRoomNotFound = "Room does not exist"

// Envelope is the frame exchanged in both directions
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EditPayload is the data of codeChange and compile
type EditPayload struct {
	RoomID *string `json:"roomId"`
	Code   *string `json:"code"`
}

// CompileError is the compileResult payload of a failed run
type CompileError struct {
	Error string `json:"error"`
}

// Request is a decoded and validated inbound event
type Request struct {
	Event  string
	RoomID string
	Code   string
}

// ValidationError reports a frame that cannot be dispatched. It is sent back
// to the sender only.
type ValidationError struct {
	Event  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Event == "" {
		return "invalid message: " + e.Reason
	}
	return fmt.Sprintf("invalid %s payload: %s", e.Event, e.Reason)
}

// Decode parses and validates one inbound frame
func Decode(raw []byte) (*Request, error) {
	var env Envelope
	if err := sonic.Unmarshal(raw, &env); err != nil {
		return nil, &ValidationError{Reason: "malformed JSON"}
	}

	switch env.Event {
	case EventCreateRoom, EventJoinRoom:
		roomID, err := decodeRoomID(env.Event, env.Data)
		if err != nil {
			return nil, err
		}
		return &Request{Event: env.Event, RoomID: roomID}, nil

	case EventCodeChange, EventCompile:
		return decodeEdit(env.Event, env.Data)

	case "":
		return nil, &ValidationError{Reason: "missing event name"}

	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown event %q", env.Event)}
	}
}

// decodeRoomID accepts a bare JSON string holding a valid room id
func decodeRoomID(event string, data json.RawMessage) (string, error) {
	if len(data) == 0 {
		return "", &ValidationError{Event: event, Reason: "room id is required"}
	}

	var roomID string
	if err := sonic.Unmarshal(data, &roomID); err != nil {
		return "", &ValidationError{Event: event, Reason: "room id must be a string"}
	}
	if strings.TrimSpace(roomID) == "" {
		return "", &ValidationError{Event: event, Reason: "room id is required"}
	}
	if err := utils.ValidateRoomID(roomID); err != nil {
		return "", &ValidationError{Event: event, Reason: err.Error()}
	}
	return roomID, nil
}

// decodeEdit accepts {"roomId": string, "code": string}
func decodeEdit(event string, data json.RawMessage) (*Request, error) {
	if len(data) == 0 {
		return nil, &ValidationError{Event: event, Reason: "payload is required"}
	}

	var payload EditPayload
	if err := sonic.Unmarshal(data, &payload); err != nil {
		return nil, &ValidationError{Event: event, Reason: "expected {roomId, code}"}
	}
	if payload.RoomID == nil || strings.TrimSpace(*payload.RoomID) == "" {
		return nil, &ValidationError{Event: event, Reason: "roomId is required"}
	}
	if payload.Code == nil {
		return nil, &ValidationError{Event: event, Reason: "code is required"}
	}

	return &Request{Event: event, RoomID: *payload.RoomID, Code: *payload.Code}, nil
}

// Encode builds an outbound frame
func Encode(event string, data interface{}) ([]byte, error) {
	payload, err := sonic.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", event, err)
	}
	return sonic.Marshal(Envelope{Event: event, Data: payload})
}
