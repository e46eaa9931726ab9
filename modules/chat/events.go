package chat

import (
	"encoding/json"
	"fmt"

	domain "github.com/example/chat-relay/domain/chat"
)

// Inbound event names.
const (
	InUserConnected     = "user-connected"
	InSendChatMessage   = "send-chat-message"
	InStartPrivateChat  = "start-private-chat"
	InJoinPrivateRoom   = "join-private-room"
	InGetPrivateHistory = "get-private-chat-history"
	InGetUsersList      = "get-users-list"
	InTypingStart       = "typing-start"
	InTypingStop        = "typing-stop"
)

// Event is an inbound event handled by the Router. The set of implementations is closed.
type Event interface {
	connection() string
}

// Connect is raised by the transport when a connection opens.
type Connect struct{ ConnID string }

// Announce is the user-connected event.
type Announce struct {
	ConnID string
	Name   string
}

// SendMessage is the send-chat-message event.
type SendMessage struct {
	ConnID  string
	Message domain.Message
}

// StartPrivateChat is the start-private-chat event.
type StartPrivateChat struct {
	ConnID   string
	TargetID string
}

// JoinPrivateRoom is the join-private-room event.
type JoinPrivateRoom struct {
	ConnID string
	RoomID string
}

// GetPrivateHistory is the get-private-chat-history event.
type GetPrivateHistory struct {
	ConnID string
	RoomID string
}

// GetUsersList is the get-users-list event.
type GetUsersList struct{ ConnID string }

// TypingStart is the typing-start event.
type TypingStart struct {
	ConnID string
	RoomID string
}

// TypingStop is the typing-stop event.
type TypingStop struct {
	ConnID string
	RoomID string
}

// Disconnect is raised by the transport when a connection closes.
type Disconnect struct{ ConnID string }

// TypingExpired is raised when a typing timer fires.
type TypingExpired struct {
	ConnID string
	Seq    uint64
}

func (e Connect) connection() string           { return e.ConnID }
func (e Announce) connection() string          { return e.ConnID }
func (e SendMessage) connection() string       { return e.ConnID }
func (e StartPrivateChat) connection() string  { return e.ConnID }
func (e JoinPrivateRoom) connection() string   { return e.ConnID }
func (e GetPrivateHistory) connection() string { return e.ConnID }
func (e GetUsersList) connection() string      { return e.ConnID }
func (e TypingStart) connection() string       { return e.ConnID }
func (e TypingStop) connection() string        { return e.ConnID }
func (e Disconnect) connection() string        { return e.ConnID }
func (e TypingExpired) connection() string     { return e.ConnID }

// Frame is the JSON envelope exchanged over the WebSocket in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type typingPayload struct {
	RoomID string `json:"roomId,omitempty"`
}

// DecodeEvent turns an inbound frame from connID into an Event.
func DecodeEvent(connID string, frame Frame) (Event, error) {
	switch frame.Event {
	case InUserConnected:
		name, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return Announce{ConnID: connID, Name: name}, nil
	case InSendChatMessage:
		var msg domain.Message
		if err := decodeInto(frame.Data, &msg); err != nil {
			return nil, err
		}
		return SendMessage{ConnID: connID, Message: msg}, nil
	case InStartPrivateChat:
		target, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return StartPrivateChat{ConnID: connID, TargetID: target}, nil
	case InJoinPrivateRoom:
		roomID, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return JoinPrivateRoom{ConnID: connID, RoomID: roomID}, nil
	case InGetPrivateHistory:
		roomID, err := decodeString(frame.Data)
		if err != nil {
			return nil, err
		}
		return GetPrivateHistory{ConnID: connID, RoomID: roomID}, nil
	case InGetUsersList:
		return GetUsersList{ConnID: connID}, nil
	case InTypingStart, InTypingStop:
		var p typingPayload
		if len(frame.Data) > 0 && string(frame.Data) != "null" {
			if err := json.Unmarshal(frame.Data, &p); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, frame.Event, err)
			}
		}
		if frame.Event == InTypingStart {
			return TypingStart{ConnID: connID, RoomID: p.RoomID}, nil
		}
		return TypingStop{ConnID: connID, RoomID: p.RoomID}, nil
	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrMalformedEvent, frame.Event)
	}
}

func decodeString(data json.RawMessage) (string, error) {
	var s string
	if err := decodeInto(data, &s); err != nil {
		return "", err
	}
	return s, nil
}

func decodeInto(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing payload", ErrMalformedEvent)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return nil
}
