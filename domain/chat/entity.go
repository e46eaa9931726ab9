package chat

import "time"

// User represents an announced connection.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Message represents a chat message. Field names follow the browser client contract.
type Message struct {
	Text      string    `json:"message"`
	SenderID  string    `json:"userId,omitempty"`
	Sender    string    `json:"userName"`
	Timestamp time.Time `json:"timestamp"`
	IsSystem  bool      `json:"isSystemMessage,omitempty"`
	RoomID    string    `json:"roomId,omitempty"`
	IsPrivate bool      `json:"isPrivate,omitempty"`
}

// PrivateRoom is a two-party conversation with its message history.
type PrivateRoom struct {
	ID           string    `json:"id"`
	Participants [2]string `json:"participants"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasParticipant reports whether id is one of the room's two participants.
func (r *PrivateRoom) HasParticipant(id string) bool {
	return r.Participants[0] == id || r.Participants[1] == id
}

// Peer returns the participant that is not id.
func (r *PrivateRoom) Peer(id string) string {
	if r.Participants[0] == id {
		return r.Participants[1]
	}
	return r.Participants[0]
}

// TypingUser is the payload of a user-typing notification.
type TypingUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	RoomID string `json:"roomId,omitempty"`
}

// StoppedTyping is the payload of a user-stopped-typing notification.
type StoppedTyping struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId,omitempty"`
}

// PrivateChat is sent to both participants when a private chat starts.
type PrivateChat struct {
	RoomID      string    `json:"roomId"`
	Participant User      `json:"participant"`
	Messages    []Message `json:"messages"`
}

// PrivateHistory is the reply to a private history request.
type PrivateHistory struct {
	RoomID   string    `json:"roomId"`
	Messages []Message `json:"messages"`
}
