package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// UserJoinedEvent is emitted when a connection announces a display name.
type UserJoinedEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Online    int       `json:"online"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLeftEvent is emitted when an announced connection disconnects.
type UserLeftEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Online    int       `json:"online"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageSentEvent is emitted for every delivered chat message. It never carries the text.
type MessageSentEvent struct {
	SenderID  string    `json:"sender_id"`
	RoomID    string    `json:"room_id,omitempty"`
	Private   bool      `json:"private"`
	Length    int       `json:"length"`
	Timestamp time.Time `json:"timestamp"`
}

// PrivateChatStartedEvent is emitted when a private chat is initiated.
type PrivateChatStartedEvent struct {
	RoomID      string    `json:"room_id"`
	InitiatorID string    `json:"initiator_id"`
	TargetID    string    `json:"target_id"`
	Created     bool      `json:"created"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	UserJoinedV1 = helper.EventDefinition[UserJoinedEvent](
		"chat",
		"UserJoined",
		"v1",
	)

	UserLeftV1 = helper.EventDefinition[UserLeftEvent](
		"chat",
		"UserLeft",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageSentEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	PrivateChatStartedV1 = helper.EventDefinition[PrivateChatStartedEvent](
		"chat",
		"PrivateChatStarted",
		"v1",
	)
)
