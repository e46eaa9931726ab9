package chat

import (
	"strings"
	"testing"
	"time"

	domain "github.com/example/chat-relay/domain/chat"
	"github.com/example/chat-relay/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type routerFixture struct {
	router  *Router
	sched   *manualScheduler
	expired []TypingExpired
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{sched: &manualScheduler{}}
	tracker := NewTypingTracker(f.sched, DefaultTypingTimeout, func(connID string, seq uint64) {
		f.expired = append(f.expired, TypingExpired{ConnID: connID, Seq: seq})
	})
	f.router = NewRouter(NewRegistry(), NewRoomDirectory(DefaultMaxRoomHistory), tracker, DefaultMaxMessageLen, newMockLogger())
	f.router.now = func() time.Time { return fixedTime }
	return f
}

func (f *routerFixture) join(connID, name string) {
	f.router.Handle(Connect{ConnID: connID})
	f.router.Handle(Announce{ConnID: connID, Name: name})
}

func (f *routerFixture) startPrivate(from, to string) string {
	f.router.Handle(StartPrivateChat{ConnID: from, TargetID: to})
	return RoomKeyFor(from, to)
}

func TestRouter_Connect(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")

	effects := f.router.Handle(Connect{ConnID: "conn-b"})

	require.Len(t, effects, 2)
	assert.Equal(t, sendTo("conn-b", EventConnected, Welcome{ID: "conn-b"}), effects[0])
	assert.Equal(t, EventUsersList, effects[1].Event)
	assert.Equal(t, "conn-b", effects[1].ConnID)
	assert.Equal(t, []domain.User{{ID: "conn-a", Name: "Alice"}}, effects[1].Payload)
}

func TestRouter_Announce(t *testing.T) {
	f := newRouterFixture()
	f.router.Handle(Connect{ConnID: "conn-a"})

	effects := f.router.Handle(Announce{ConnID: "conn-a", Name: "Alice"})

	require.Len(t, effects, 3)
	assert.Equal(t, []string{EventUserJoined, EventUsersList}, eventNames(effects))
	assert.Equal(t, ScopeAll, effects[0].Scope)
	assert.Equal(t, domain.Message{
		Text:      "Alice has joined the chat.",
		SenderID:  "conn-a",
		Sender:    "System",
		Timestamp: fixedTime,
		IsSystem:  true,
	}, effects[0].Payload)
	assert.Equal(t, ScopeAll, effects[1].Scope)
	assert.Equal(t, []domain.User{{ID: "conn-a", Name: "Alice"}}, effects[1].Payload)

	assert.Equal(t, EffectPublish, effects[2].Kind)
	assert.Equal(t, events.UserJoinedEvent{
		UserID:    "conn-a",
		Username:  "Alice",
		Online:    1,
		Timestamp: fixedTime,
	}, effects[2].Payload)
}

func TestRouter_AnnounceTrimsAndRejectsNames(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantName string
		dropped  bool
	}{
		{name: "plain", input: "Alice", wantName: "Alice"},
		{name: "trimmed", input: "  Bob  ", wantName: "Bob"},
		{name: "blank", input: "   ", dropped: true},
		{name: "too long", input: strings.Repeat("a", MaxUsernameLength+1), dropped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture()
			f.router.Handle(Connect{ConnID: "conn-a"})

			effects := f.router.Handle(Announce{ConnID: "conn-a", Name: tt.input})

			if tt.dropped {
				assert.Empty(t, effects)
				assert.Empty(t, f.router.Users())
				return
			}
			require.NotEmpty(t, effects)
			assert.Equal(t, []domain.User{{ID: "conn-a", Name: tt.wantName}}, f.router.Users())
		})
	}
}

func TestRouter_ReannounceKeepsSingleEntry(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.router.Handle(Announce{ConnID: "conn-a", Name: "Alicia"})

	assert.Equal(t, []domain.User{{ID: "conn-a", Name: "Alicia"}}, f.router.Users())
}

func TestRouter_PublicMessageIsStamped(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")

	effects := f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{
		Text:     "hello",
		SenderID: "someone-else",
		Sender:   "Mallory",
		IsSystem: true,
	}})

	require.Len(t, effects, 2)
	assert.Equal(t, EventChatMessage, effects[0].Event)
	assert.Equal(t, ScopeAll, effects[0].Scope)
	assert.Equal(t, domain.Message{
		Text:      "hello",
		SenderID:  "conn-a",
		Sender:    "Alice",
		Timestamp: fixedTime,
	}, effects[0].Payload)
	assert.Equal(t, events.MessageSentEvent{
		SenderID:  "conn-a",
		Length:    5,
		Timestamp: fixedTime,
	}, effects[1].Payload)
}

func TestRouter_MessageValidation(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.router.maxMessageLen = 10

	assert.Empty(t, f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "  "}}))
	assert.Empty(t, f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "this is far too long"}}))
	assert.NotEmpty(t, f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "short"}}))
}

func TestRouter_StartPrivateChat(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")

	effects := f.router.Handle(StartPrivateChat{ConnID: "conn-a", TargetID: "conn-b"})
	roomID := RoomKeyFor("conn-a", "conn-b")

	require.Len(t, effects, 5)
	assert.Equal(t, joinGroup("conn-a", roomID), effects[0])
	assert.Equal(t, sendTo("conn-b", EventJoinPrivateRoom, roomID), effects[1])
	assert.Equal(t, sendTo("conn-a", EventPrivateStarted, domain.PrivateChat{
		RoomID:      roomID,
		Participant: domain.User{ID: "conn-b", Name: "Bob"},
		Messages:    []domain.Message{},
	}), effects[2])
	assert.Equal(t, sendTo("conn-b", EventPrivateInvitation, domain.PrivateChat{
		RoomID:      roomID,
		Participant: domain.User{ID: "conn-a", Name: "Alice"},
		Messages:    []domain.Message{},
	}), effects[3])
	assert.Equal(t, events.PrivateChatStartedEvent{
		RoomID:      roomID,
		InitiatorID: "conn-a",
		TargetID:    "conn-b",
		Created:     true,
		Timestamp:   fixedTime,
	}, effects[4].Payload)

	// Starting again from the other side reuses the room and its history.
	f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "hi", IsPrivate: true, RoomID: roomID}})
	effects = f.router.Handle(StartPrivateChat{ConnID: "conn-b", TargetID: "conn-a"})
	require.Len(t, effects, 5)
	started, ok := effects[2].Payload.(domain.PrivateChat)
	require.True(t, ok)
	assert.Equal(t, roomID, started.RoomID)
	assert.Len(t, started.Messages, 1)
	assert.False(t, effects[4].Payload.(events.PrivateChatStartedEvent).Created)

	_, rooms, _ := f.router.Stats()
	assert.Equal(t, 1, rooms)
}

func TestRouter_StartPrivateChatErrors(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		target   string
		wantText string
	}{
		{name: "unknown target", from: "conn-a", target: "ghost", wantText: errUserNotFound},
		{name: "unannounced initiator", from: "conn-x", target: "conn-a", wantText: errUserNotFound},
		{name: "self", from: "conn-a", target: "conn-a", wantText: errSelfPrivateChat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture()
			f.join("conn-a", "Alice")
			f.router.Handle(Connect{ConnID: "conn-x"})

			effects := f.router.Handle(StartPrivateChat{ConnID: tt.from, TargetID: tt.target})

			require.Len(t, effects, 1)
			assert.Equal(t, sendTo(tt.from, EventError, tt.wantText), effects[0])
			_, rooms, _ := f.router.Stats()
			assert.Zero(t, rooms)
		})
	}
}

func TestRouter_PrivateMessageReachesOnlyParticipants(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")
	f.join("conn-c", "Carol")
	roomID := f.startPrivate("conn-a", "conn-b")

	effects := f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{
		Text:      "hi",
		IsPrivate: true,
		RoomID:    roomID,
	}})

	require.Len(t, effects, 3)
	recipients := map[string]bool{}
	for _, e := range effects[:2] {
		assert.Equal(t, EffectSend, e.Kind)
		assert.Equal(t, ScopeConnection, e.Scope)
		assert.Equal(t, EventPrivateMessage, e.Event)
		recipients[e.ConnID] = true
	}
	assert.Equal(t, map[string]bool{"conn-a": true, "conn-b": true}, recipients)
	assert.NotContains(t, recipients, "conn-c")

	sent := effects[2].Payload.(events.MessageSentEvent)
	assert.True(t, sent.Private)
	assert.Equal(t, roomID, sent.RoomID)

	room, ok := f.router.Room(roomID)
	require.True(t, ok)
	require.Len(t, room.Messages, 1)
	assert.Equal(t, "hi", room.Messages[0].Text)
	assert.Equal(t, "Alice", room.Messages[0].Sender)
}

func TestRouter_PrivateMessageRejected(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")
	f.join("conn-c", "Carol")
	roomID := f.startPrivate("conn-a", "conn-b")

	// Non-participant
	effects := f.router.Handle(SendMessage{ConnID: "conn-c", Message: domain.Message{Text: "sneaky", IsPrivate: true, RoomID: roomID}})
	assert.Empty(t, effects)

	// Unknown room
	effects = f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "lost", IsPrivate: true, RoomID: "nope"}})
	assert.Empty(t, effects)

	room, _ := f.router.Room(roomID)
	assert.Empty(t, room.Messages)
}

func TestRouter_JoinPrivateRoom(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-b", "Bob")

	assert.Equal(t, []Effect{joinGroup("conn-b", "room-1")}, f.router.Handle(JoinPrivateRoom{ConnID: "conn-b", RoomID: "room-1"}))
	assert.Empty(t, f.router.Handle(JoinPrivateRoom{ConnID: "conn-b"}))
}

func TestRouter_GetPrivateHistory(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")
	f.join("conn-c", "Carol")
	roomID := f.startPrivate("conn-a", "conn-b")
	f.router.Handle(SendMessage{ConnID: "conn-b", Message: domain.Message{Text: "yo", IsPrivate: true, RoomID: roomID}})

	effects := f.router.Handle(GetPrivateHistory{ConnID: "conn-a", RoomID: roomID})
	require.Len(t, effects, 1)
	assert.Equal(t, EventPrivateHistory, effects[0].Event)
	assert.Equal(t, "conn-a", effects[0].ConnID)
	history := effects[0].Payload.(domain.PrivateHistory)
	assert.Equal(t, roomID, history.RoomID)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "yo", history.Messages[0].Text)

	assert.Empty(t, f.router.Handle(GetPrivateHistory{ConnID: "conn-c", RoomID: roomID}))
	assert.Empty(t, f.router.Handle(GetPrivateHistory{ConnID: "conn-a", RoomID: "missing"}))
}

func TestRouter_GetUsersList(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")

	effects := f.router.Handle(GetUsersList{ConnID: "conn-b"})
	require.Len(t, effects, 1)
	assert.Equal(t, sendTo("conn-b", EventUsersList, []domain.User{
		{ID: "conn-a", Name: "Alice"},
		{ID: "conn-b", Name: "Bob"},
	}), effects[0])
}

func TestRouter_PublicTypingLifecycle(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")

	effects := f.router.Handle(TypingStart{ConnID: "conn-a"})
	require.Len(t, effects, 1)
	assert.Equal(t, sendAllExcept("conn-a", EventUserTyping, domain.TypingUser{ID: "conn-a", Name: "Alice"}), effects[0])

	// Repeated starts only re-arm the timer.
	assert.Empty(t, f.router.Handle(TypingStart{ConnID: "conn-a"}))
	assert.Equal(t, 1, f.sched.Pending())

	effects = f.router.Handle(TypingStop{ConnID: "conn-a"})
	require.Len(t, effects, 1)
	assert.Equal(t, sendAllExcept("conn-a", EventUserStoppedTyping, domain.StoppedTyping{UserID: "conn-a"}), effects[0])
	assert.Zero(t, f.sched.Pending())

	assert.Empty(t, f.router.Handle(TypingStop{ConnID: "conn-a"}))
}

func TestRouter_TypingExpires(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.router.Handle(TypingStart{ConnID: "conn-a"})

	f.sched.FireAll(false)
	require.Len(t, f.expired, 1)

	effects := f.router.Handle(f.expired[0])
	require.Len(t, effects, 1)
	assert.Equal(t, sendAllExcept("conn-a", EventUserStoppedTyping, domain.StoppedTyping{UserID: "conn-a"}), effects[0])

	_, _, typing := f.router.Stats()
	assert.Zero(t, typing)
}

func TestRouter_StaleTypingExpiryIgnored(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.router.Handle(TypingStart{ConnID: "conn-a"})
	f.router.Handle(TypingStart{ConnID: "conn-a"})

	// The first timer fires late, after it was replaced.
	f.sched.FireAll(true)
	require.Len(t, f.expired, 2)

	assert.Empty(t, f.router.Handle(f.expired[0]))
	_, _, typing := f.router.Stats()
	assert.Equal(t, 1, typing)

	assert.NotEmpty(t, f.router.Handle(f.expired[1]))
}

func TestRouter_PrivateTypingGoesToPeer(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")
	f.join("conn-c", "Carol")
	roomID := f.startPrivate("conn-a", "conn-b")

	effects := f.router.Handle(TypingStart{ConnID: "conn-a", RoomID: roomID})
	require.Len(t, effects, 1)
	assert.Equal(t, sendTo("conn-b", EventUserTyping, domain.TypingUser{ID: "conn-a", Name: "Alice", RoomID: roomID}), effects[0])

	// Moving to the public chat stops private typing first.
	effects = f.router.Handle(TypingStart{ConnID: "conn-a"})
	require.Len(t, effects, 2)
	assert.Equal(t, sendTo("conn-b", EventUserStoppedTyping, domain.StoppedTyping{UserID: "conn-a", RoomID: roomID}), effects[0])
	assert.Equal(t, sendAllExcept("conn-a", EventUserTyping, domain.TypingUser{ID: "conn-a", Name: "Alice"}), effects[1])

	// Carol is not in the room.
	assert.Empty(t, f.router.Handle(TypingStart{ConnID: "conn-c", RoomID: roomID}))
	assert.Empty(t, f.router.Handle(TypingStart{ConnID: "conn-c", RoomID: "missing"}))
}

func TestRouter_TypingRequiresAnnounce(t *testing.T) {
	f := newRouterFixture()
	f.router.Handle(Connect{ConnID: "conn-a"})

	assert.Empty(t, f.router.Handle(TypingStart{ConnID: "conn-a"}))
	assert.Zero(t, f.sched.Pending())
}

func TestRouter_DisconnectWhileTyping(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")
	f.router.Handle(TypingStart{ConnID: "conn-a"})

	effects := f.router.Handle(Disconnect{ConnID: "conn-a"})

	assert.Equal(t, []string{EventUserStoppedTyping, EventUserLeft, EventUsersList}, eventNames(effects))
	for _, e := range effects[:3] {
		assert.Equal(t, ScopeAllExcept, e.Scope)
		assert.Equal(t, "conn-a", e.ConnID)
	}
	assert.Equal(t, "Alice has left the chat.", effects[1].Payload.(domain.Message).Text)
	assert.Equal(t, []domain.User{{ID: "conn-b", Name: "Bob"}}, effects[2].Payload)
	assert.Equal(t, events.UserLeftEvent{
		UserID:    "conn-a",
		Username:  "Alice",
		Online:    1,
		Timestamp: fixedTime,
	}, effects[3].Payload)

	users, _, typing := f.router.Stats()
	assert.Equal(t, 1, users)
	assert.Zero(t, typing)
	assert.Zero(t, f.sched.Pending())
}

func TestRouter_DisconnectUnannounced(t *testing.T) {
	f := newRouterFixture()
	f.router.Handle(Connect{ConnID: "conn-a"})

	assert.Empty(t, f.router.Handle(Disconnect{ConnID: "conn-a"}))
}

func TestRouter_EventsAfterDisconnectIgnored(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")
	roomID := f.startPrivate("conn-a", "conn-b")
	f.router.Handle(Disconnect{ConnID: "conn-a"})

	replayed := []Event{
		Announce{ConnID: "conn-a", Name: "Alice"},
		SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "late"}},
		SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "late", IsPrivate: true, RoomID: roomID}},
		StartPrivateChat{ConnID: "conn-a", TargetID: "conn-b"},
		GetPrivateHistory{ConnID: "conn-a", RoomID: roomID},
		GetUsersList{ConnID: "conn-a"},
		TypingStart{ConnID: "conn-a"},
		Disconnect{ConnID: "conn-a"},
	}
	for _, ev := range replayed {
		assert.Empty(t, f.router.Handle(ev), "%T", ev)
	}

	users, _, typing := f.router.Stats()
	assert.Equal(t, 1, users)
	assert.Zero(t, typing)
}

func TestRouter_StaleRoomAfterPeerLeaves(t *testing.T) {
	f := newRouterFixture()
	f.join("conn-a", "Alice")
	f.join("conn-b", "Bob")
	roomID := f.startPrivate("conn-a", "conn-b")
	f.router.Handle(Disconnect{ConnID: "conn-b"})

	effects := f.router.Handle(SendMessage{ConnID: "conn-a", Message: domain.Message{Text: "still there?", IsPrivate: true, RoomID: roomID}})

	// The room outlives the peer; delivery to the closed connection is the transport's concern.
	require.Len(t, effects, 3)
	room, ok := f.router.Room(roomID)
	require.True(t, ok)
	assert.Len(t, room.Messages, 1)
}
