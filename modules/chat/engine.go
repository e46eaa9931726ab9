package chat

import (
	"sync"
	"time"

	domain "github.com/example/chat-relay/domain/chat"
	"github.com/go-monolith/mono/pkg/types"
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	TypingTimeout  time.Duration
	MaxMessageLen  int
	MaxRoomHistory int
	Scheduler      Scheduler
}

// Engine owns the chat state and serializes every event through a single lock.
// Inbound events and typing timer expiries share that lock, so one event is
// fully handled and its effects handed to the Transport before the next starts.
type Engine struct {
	mu        sync.Mutex
	router    *Router
	transport Transport
	publisher Publisher
	logger    types.Logger
}

// NewEngine creates an Engine with empty stores.
func NewEngine(cfg EngineConfig, logger types.Logger) *Engine {
	if cfg.MaxMessageLen <= 0 {
		cfg.MaxMessageLen = DefaultMaxMessageLen
	}
	e := &Engine{logger: logger}
	tracker := NewTypingTracker(cfg.Scheduler, cfg.TypingTimeout, e.expire)
	e.router = NewRouter(NewRegistry(), NewRoomDirectory(cfg.MaxRoomHistory), tracker, cfg.MaxMessageLen, logger)
	return e
}

// SetTransport sets the transport that receives send and join effects.
func (e *Engine) SetTransport(t Transport) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transport = t
}

// SetPublisher sets the publisher that receives publish effects.
func (e *Engine) SetPublisher(p Publisher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.publisher = p
}

// Dispatch handles one event to completion.
func (e *Engine) Dispatch(ev Event) {
	e.mu.Lock()
	effects := e.router.Handle(ev)

	deliver := make([]Effect, 0, len(effects))
	var published []any
	for _, effect := range effects {
		if effect.Kind == EffectPublish {
			published = append(published, effect.Payload)
			continue
		}
		deliver = append(deliver, effect)
	}
	if len(deliver) > 0 && e.transport != nil {
		e.transport.Deliver(deliver)
	}
	publisher := e.publisher
	e.mu.Unlock()

	if publisher == nil {
		return
	}
	for _, payload := range published {
		if err := publisher.Publish(payload); err != nil {
			e.logger.Warn("Failed to publish chat event", "error", err)
		}
	}
}

func (e *Engine) expire(connID string, seq uint64) {
	e.Dispatch(TypingExpired{ConnID: connID, Seq: seq})
}

// Users returns a snapshot of the announced users.
func (e *Engine) Users() []domain.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.Users()
}

// Room returns a snapshot of a private room.
func (e *Engine) Room(roomID string) (domain.PrivateRoom, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.Room(roomID)
}

// Stats returns the number of users, private rooms and typing connections.
func (e *Engine) Stats() (users, rooms, typing int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.router.Stats()
}
