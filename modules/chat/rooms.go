package chat

import (
	"sort"
	"strings"
	"time"

	domain "github.com/example/chat-relay/domain/chat"
)

// roomKeySeparator joins the sorted participant ids of a private room.
const roomKeySeparator = "-"

// RoomKeyFor returns the private room id for a pair of connections.
// The result does not depend on argument order.
func RoomKeyFor(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, roomKeySeparator)
}

// RoomDirectory stores private rooms keyed by RoomKeyFor.
// It is not safe for concurrent use; the Engine serializes access.
type RoomDirectory struct {
	rooms      map[string]*domain.PrivateRoom
	maxHistory int
	now        func() time.Time
}

// NewRoomDirectory creates an empty directory. A maxHistory of zero or less keeps every message.
func NewRoomDirectory(maxHistory int) *RoomDirectory {
	return &RoomDirectory{
		rooms:      make(map[string]*domain.PrivateRoom),
		maxHistory: maxHistory,
		now:        time.Now,
	}
}

// GetOrCreate returns the room for the pair, creating it on first use.
// The second return value reports whether the room was created by this call.
func (d *RoomDirectory) GetOrCreate(a, b string) (*domain.PrivateRoom, bool) {
	id := RoomKeyFor(a, b)
	if room, ok := d.rooms[id]; ok {
		return room, false
	}

	room := &domain.PrivateRoom{
		ID:           id,
		Participants: [2]string{a, b},
		Messages:     make([]domain.Message, 0),
		CreatedAt:    d.now(),
	}
	d.rooms[id] = room
	return room, true
}

// Get returns a room by id.
func (d *RoomDirectory) Get(roomID string) (*domain.PrivateRoom, bool) {
	room, ok := d.rooms[roomID]
	return room, ok
}

// AppendMessage adds msg to the room's history. Unknown rooms are ignored.
func (d *RoomDirectory) AppendMessage(roomID string, msg domain.Message) bool {
	room, ok := d.rooms[roomID]
	if !ok {
		return false
	}

	room.Messages = append(room.Messages, msg)
	// Trim to max history
	if d.maxHistory > 0 && len(room.Messages) > d.maxHistory {
		room.Messages = room.Messages[len(room.Messages)-d.maxHistory:]
	}
	return true
}

// History returns a copy of the room's messages, or nil for unknown rooms.
func (d *RoomDirectory) History(roomID string) []domain.Message {
	room, ok := d.rooms[roomID]
	if !ok {
		return nil
	}
	result := make([]domain.Message, len(room.Messages))
	copy(result, room.Messages)
	return result
}

// Len returns the number of rooms.
func (d *RoomDirectory) Len() int {
	return len(d.rooms)
}
