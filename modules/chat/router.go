package chat

import (
	"fmt"
	"time"

	domain "github.com/example/chat-relay/domain/chat"
	"github.com/example/chat-relay/events"
	"github.com/go-monolith/mono/pkg/types"
)

// Welcome is sent to a connection right after it opens.
type Welcome struct {
	ID string `json:"id"`
}

// Router applies inbound events to the registry, room directory and typing
// tracker and returns the resulting effects. It holds no lock of its own;
// callers must not invoke Handle concurrently.
type Router struct {
	registry      *Registry
	rooms         *RoomDirectory
	typing        *TypingTracker
	live          map[string]struct{}
	maxMessageLen int
	now           func() time.Time
	logger        types.Logger
}

// NewRouter creates a Router over the given stores.
func NewRouter(registry *Registry, rooms *RoomDirectory, typing *TypingTracker, maxMessageLen int, logger types.Logger) *Router {
	return &Router{
		registry:      registry,
		rooms:         rooms,
		typing:        typing,
		live:          make(map[string]struct{}),
		maxMessageLen: maxMessageLen,
		now:           time.Now,
		logger:        logger,
	}
}

// Handle processes one event to completion and returns its effects in emission order.
func (r *Router) Handle(ev Event) []Effect {
	var (
		effects []Effect
		err     error
	)

	if !r.accepts(ev) {
		r.logger.Debug("Event from closed connection dropped", "connID", ev.connection(), "event", fmt.Sprintf("%T", ev))
		return nil
	}

	switch e := ev.(type) {
	case Connect:
		effects = r.handleConnect(e)
	case Announce:
		effects, err = r.handleAnnounce(e)
	case SendMessage:
		effects, err = r.handleSendMessage(e)
	case StartPrivateChat:
		effects, err = r.handleStartPrivateChat(e)
	case JoinPrivateRoom:
		effects, err = r.handleJoinPrivateRoom(e)
	case GetPrivateHistory:
		effects, err = r.handleGetPrivateHistory(e)
	case GetUsersList:
		effects = []Effect{sendTo(e.ConnID, EventUsersList, r.registry.List())}
	case TypingStart:
		effects, err = r.handleTypingStart(e)
	case TypingStop:
		effects = r.handleTypingStop(e)
	case TypingExpired:
		effects = r.handleTypingExpired(e)
	case Disconnect:
		effects = r.handleDisconnect(e)
	default:
		err = fmt.Errorf("%w: unsupported event %T", ErrMalformedEvent, ev)
	}

	if err != nil {
		r.logger.Debug("Event dropped", "connID", ev.connection(), "event", fmt.Sprintf("%T", ev), "error", err)
	}
	return effects
}

// accepts reports whether ev may be handled. Only connections that are open
// may raise client events; timer expiries are always accepted.
func (r *Router) accepts(ev Event) bool {
	switch ev.(type) {
	case Connect, TypingExpired:
		return true
	}
	_, ok := r.live[ev.connection()]
	return ok
}

func (r *Router) handleConnect(e Connect) []Effect {
	r.live[e.ConnID] = struct{}{}
	return []Effect{
		sendTo(e.ConnID, EventConnected, Welcome{ID: e.ConnID}),
		sendTo(e.ConnID, EventUsersList, r.registry.List()),
	}
}

func (r *Router) handleAnnounce(e Announce) ([]Effect, error) {
	name, err := ValidateUsername(e.Name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	user := r.registry.Register(e.ConnID, name)
	now := r.now()
	joined := r.systemMessage(fmt.Sprintf("%s has joined the chat.", user.Name), user.ID, now)

	r.logger.Info("User joined", "connID", user.ID, "name", user.Name)
	return []Effect{
		sendAll(EventUserJoined, joined),
		sendAll(EventUsersList, r.registry.List()),
		publish(events.UserJoinedEvent{
			UserID:    user.ID,
			Username:  user.Name,
			Online:    r.registry.Len(),
			Timestamp: now,
		}),
	}, nil
}

func (r *Router) handleSendMessage(e SendMessage) ([]Effect, error) {
	msg := e.Message
	if err := ValidateMessage(msg.Text, r.maxMessageLen); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	msg.SenderID = e.ConnID
	msg.IsSystem = false
	if user, ok := r.registry.Get(e.ConnID); ok {
		msg.Sender = user.Name
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = r.now()
	}

	sent := events.MessageSentEvent{
		SenderID:  e.ConnID,
		Length:    len(msg.Text),
		Timestamp: msg.Timestamp,
	}

	if !msg.IsPrivate || msg.RoomID == "" {
		return []Effect{
			sendAll(EventChatMessage, msg),
			publish(sent),
		}, nil
	}

	room, ok := r.rooms.Get(msg.RoomID)
	if !ok {
		return nil, fmt.Errorf("%w: room %s", ErrUnknownTarget, msg.RoomID)
	}
	if !room.HasParticipant(e.ConnID) {
		return nil, fmt.Errorf("%w: room %s", ErrUnauthorized, msg.RoomID)
	}

	r.rooms.AppendMessage(room.ID, msg)

	sent.RoomID = room.ID
	sent.Private = true

	effects := make([]Effect, 0, 3)
	for _, participant := range room.Participants {
		effects = append(effects, sendTo(participant, EventPrivateMessage, msg))
	}
	return append(effects, publish(sent)), nil
}

func (r *Router) handleStartPrivateChat(e StartPrivateChat) ([]Effect, error) {
	initiator, ok := r.registry.Get(e.ConnID)
	if !ok {
		return []Effect{sendTo(e.ConnID, EventError, errUserNotFound)},
			fmt.Errorf("%w: initiator %s", ErrUnknownTarget, e.ConnID)
	}
	target, ok := r.registry.Get(e.TargetID)
	if !ok {
		return []Effect{sendTo(e.ConnID, EventError, errUserNotFound)},
			fmt.Errorf("%w: target %s", ErrUnknownTarget, e.TargetID)
	}
	if target.ID == initiator.ID {
		return []Effect{sendTo(e.ConnID, EventError, errSelfPrivateChat)},
			fmt.Errorf("%w: private chat with self", ErrMalformedEvent)
	}

	room, created := r.rooms.GetOrCreate(initiator.ID, target.ID)
	history := r.rooms.History(room.ID)

	r.logger.Info("Private chat started", "roomID", room.ID, "created", created)
	return []Effect{
		joinGroup(initiator.ID, room.ID),
		sendTo(target.ID, EventJoinPrivateRoom, room.ID),
		sendTo(initiator.ID, EventPrivateStarted, domain.PrivateChat{
			RoomID:      room.ID,
			Participant: target,
			Messages:    history,
		}),
		sendTo(target.ID, EventPrivateInvitation, domain.PrivateChat{
			RoomID:      room.ID,
			Participant: initiator,
			Messages:    history,
		}),
		publish(events.PrivateChatStartedEvent{
			RoomID:      room.ID,
			InitiatorID: initiator.ID,
			TargetID:    target.ID,
			Created:     created,
			Timestamp:   r.now(),
		}),
	}, nil
}

func (r *Router) handleJoinPrivateRoom(e JoinPrivateRoom) ([]Effect, error) {
	if e.RoomID == "" {
		return nil, fmt.Errorf("%w: empty room id", ErrMalformedEvent)
	}
	return []Effect{joinGroup(e.ConnID, e.RoomID)}, nil
}

func (r *Router) handleGetPrivateHistory(e GetPrivateHistory) ([]Effect, error) {
	room, ok := r.rooms.Get(e.RoomID)
	if !ok || !room.HasParticipant(e.ConnID) {
		// Unknown and foreign rooms look the same to the caller.
		return nil, fmt.Errorf("%w: room %s", ErrUnauthorized, e.RoomID)
	}
	return []Effect{sendTo(e.ConnID, EventPrivateHistory, domain.PrivateHistory{
		RoomID:   room.ID,
		Messages: r.rooms.History(room.ID),
	})}, nil
}

func (r *Router) handleTypingStart(e TypingStart) ([]Effect, error) {
	user, ok := r.registry.Get(e.ConnID)
	if !ok {
		return nil, fmt.Errorf("%w: unregistered sender", ErrUnknownTarget)
	}
	if e.RoomID != "" {
		room, ok := r.rooms.Get(e.RoomID)
		if !ok {
			return nil, fmt.Errorf("%w: room %s", ErrUnknownTarget, e.RoomID)
		}
		if !room.HasParticipant(e.ConnID) {
			return nil, fmt.Errorf("%w: room %s", ErrUnauthorized, e.RoomID)
		}
	}

	prev, wasTyping := r.typing.Start(user.ID, user.Name, e.RoomID)
	if wasTyping && prev.RoomID == e.RoomID {
		return nil, nil
	}

	var effects []Effect
	if wasTyping {
		effects = append(effects, r.stoppedTypingEffects(prev)...)
	}
	current, _ := r.typing.Get(user.ID)
	return append(effects, r.typingScope(current, EventUserTyping, domain.TypingUser{
		ID:     user.ID,
		Name:   user.Name,
		RoomID: e.RoomID,
	})...), nil
}

func (r *Router) handleTypingStop(e TypingStop) []Effect {
	state, ok := r.typing.Stop(e.ConnID)
	if !ok {
		return nil
	}
	return r.stoppedTypingEffects(state)
}

func (r *Router) handleTypingExpired(e TypingExpired) []Effect {
	state, ok := r.typing.Expire(e.ConnID, e.Seq)
	if !ok {
		return nil
	}
	return r.stoppedTypingEffects(state)
}

func (r *Router) handleDisconnect(e Disconnect) []Effect {
	delete(r.live, e.ConnID)

	var effects []Effect
	if state, ok := r.typing.Stop(e.ConnID); ok {
		effects = append(effects, r.stoppedTypingEffects(state)...)
	}

	user, ok := r.registry.Unregister(e.ConnID)
	if !ok {
		return effects
	}

	now := r.now()
	left := r.systemMessage(fmt.Sprintf("%s has left the chat.", user.Name), user.ID, now)

	r.logger.Info("User left", "connID", user.ID, "name", user.Name)
	return append(effects,
		sendAllExcept(user.ID, EventUserLeft, left),
		sendAllExcept(user.ID, EventUsersList, r.registry.List()),
		publish(events.UserLeftEvent{
			UserID:    user.ID,
			Username:  user.Name,
			Online:    r.registry.Len(),
			Timestamp: now,
		}),
	)
}

func (r *Router) stoppedTypingEffects(state TypingState) []Effect {
	return r.typingScope(state, EventUserStoppedTyping, domain.StoppedTyping{
		UserID: state.ConnID,
		RoomID: state.RoomID,
	})
}

// typingScope addresses a typing notification: the room peer for private
// typing, everyone but the typist otherwise.
func (r *Router) typingScope(state TypingState, event string, payload any) []Effect {
	if state.RoomID == "" {
		return []Effect{sendAllExcept(state.ConnID, event, payload)}
	}
	room, ok := r.rooms.Get(state.RoomID)
	if !ok {
		return nil
	}
	return []Effect{sendTo(room.Peer(state.ConnID), event, payload)}
}

func (r *Router) systemMessage(text, userID string, at time.Time) domain.Message {
	return domain.Message{
		Text:      text,
		SenderID:  userID,
		Sender:    systemSender,
		Timestamp: at,
		IsSystem:  true,
	}
}

// Users returns a snapshot of the announced users.
func (r *Router) Users() []domain.User {
	return r.registry.List()
}

// Room returns a copy of a private room's metadata and history.
func (r *Router) Room(roomID string) (domain.PrivateRoom, bool) {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return domain.PrivateRoom{}, false
	}
	snapshot := *room
	snapshot.Messages = r.rooms.History(roomID)
	return snapshot, true
}

// Stats returns current store sizes.
func (r *Router) Stats() (users, rooms, typing int) {
	return r.registry.Len(), r.rooms.Len(), r.typing.Len()
}
