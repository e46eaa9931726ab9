package chat

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation constants
const (
	MaxUsernameLength     = 50
	DefaultMaxMessageLen  = 5000
	DefaultMaxRoomHistory = 500
	DefaultTypingTimeout  = 3 * time.Second
)

// Routing errors
var (
	ErrUnknownTarget  = errors.New("unknown target")
	ErrUnauthorized   = errors.New("not a participant")
	ErrMalformedEvent = errors.New("malformed event")
)

// Validation errors
var (
	ErrUsernameEmpty   = errors.New("username cannot be empty")
	ErrUsernameTooLong = errors.New("username exceeds maximum length")
	ErrUsernameInvalid = errors.New("username contains invalid characters")
	ErrMessageEmpty    = errors.New("message content cannot be empty")
	ErrMessageTooLong  = errors.New("message exceeds maximum length")
	ErrMessageInvalid  = errors.New("message contains invalid characters")
)

// Outbound event names.
const (
	EventConnected         = "connected"
	EventChatMessage       = "chat-message"
	EventPrivateMessage    = "private-message"
	EventUserJoined        = "user-joined"
	EventUserLeft          = "user-left"
	EventUsersList         = "users-list"
	EventPrivateStarted    = "private-chat-started"
	EventPrivateInvitation = "private-chat-invitation"
	EventPrivateHistory    = "private-chat-history"
	EventJoinPrivateRoom   = "join-private-room"
	EventUserTyping        = "user-typing"
	EventUserStoppedTyping = "user-stopped-typing"
	EventError             = "error"
)

const (
	systemSender       = "System"
	errUserNotFound    = "User not found"
	errSelfPrivateChat = "Cannot start a private chat with yourself"
)

// ValidateUsername trims and validates a display name.
func ValidateUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameEmpty
	}
	if !utf8.ValidString(username) {
		return "", ErrUsernameInvalid
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return "", ErrUsernameTooLong
	}
	return username, nil
}

// ValidateMessage validates message text against maxLen bytes.
func ValidateMessage(content string, maxLen int) error {
	if strings.TrimSpace(content) == "" {
		return ErrMessageEmpty
	}
	if maxLen > 0 && len(content) > maxLen {
		return ErrMessageTooLong
	}
	if !utf8.ValidString(content) {
		return ErrMessageInvalid
	}
	return nil
}

// Service names served by the chat module.
const (
	ServiceListUsers = "list-users"
	ServiceGetRoom   = "get-room"
)

// ListUsersRequest is the request for the list-users service.
type ListUsersRequest struct{}

// ListUsersResponse is the response for the list-users service.
type ListUsersResponse struct {
	Users []UserView `json:"users"`
}

// UserView is a user as exposed outside the chat module.
type UserView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GetRoomRequest is the request for the get-room service.
type GetRoomRequest struct {
	RoomID string `json:"room_id"`
}

// GetRoomResponse is the response for the get-room service. Message bodies are never included.
type GetRoomResponse struct {
	Found        bool      `json:"found"`
	RoomID       string    `json:"room_id,omitempty"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}
