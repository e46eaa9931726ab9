package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/chat-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module exposes the chat Engine to the mono application: it publishes
// domain events on the EventBus and serves read-only request/reply services.
type Module struct {
	engine   *Engine
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
	_ Publisher                  = (*Module)(nil)
)

// NewModule creates a new chat module.
func NewModule(cfg EngineConfig, logger types.Logger) *Module {
	return &Module{
		engine: NewEngine(cfg, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// SetTransport wires the transport that delivers outbound events
// (called from main.go).
func (m *Module) SetTransport(t Transport) {
	m.engine.SetTransport(t)
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.UserJoinedV1.ToBase(),
		events.UserLeftV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.PrivateChatStartedV1.ToBase(),
	}
}

// RegisterServices registers the read-only chat services.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := container.RegisterRequestReplyService(
		ServiceListUsers,
		m.handleListUsers,
	); err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceListUsers, err)
	}

	if err := container.RegisterRequestReplyService(
		ServiceGetRoom,
		m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register %s: %w", ServiceGetRoom, err)
	}

	m.logger.Info("Registered chat services",
		"services", []string{ServiceListUsers, ServiceGetRoom})
	return nil
}

// Start wires the EventBus publisher into the engine.
func (m *Module) Start(_ context.Context) error {
	if m.eventBus != nil {
		m.engine.SetPublisher(m)
	}
	m.logger.Info("Chat module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.engine.SetPublisher(nil)
	m.logger.Info("Chat module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	users, rooms, typing := m.engine.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"users":         users,
			"private_rooms": rooms,
			"typing":        typing,
		},
	}
}

// Engine returns the chat engine.
func (m *Module) Engine() *Engine {
	return m.engine
}

// Dispatch handles one inbound event.
func (m *Module) Dispatch(ev Event) {
	m.engine.Dispatch(ev)
}

// Publish publishes a chat domain event on the EventBus.
func (m *Module) Publish(payload any) error {
	switch event := payload.(type) {
	case events.UserJoinedEvent:
		return events.UserJoinedV1.Publish(m.eventBus, event, nil)
	case events.UserLeftEvent:
		return events.UserLeftV1.Publish(m.eventBus, event, nil)
	case events.MessageSentEvent:
		return events.MessageSentV1.Publish(m.eventBus, event, nil)
	case events.PrivateChatStartedEvent:
		return events.PrivateChatStartedV1.Publish(m.eventBus, event, nil)
	default:
		return fmt.Errorf("unsupported chat event %T", payload)
	}
}

func (m *Module) handleListUsers(_ context.Context, _ *types.Msg) ([]byte, error) {
	users := m.engine.Users()
	resp := ListUsersResponse{Users: make([]UserView, 0, len(users))}
	for _, u := range users {
		resp.Users = append(resp.Users, UserView{ID: u.ID, Name: u.Name})
	}
	return json.Marshal(resp)
}

func (m *Module) handleGetRoom(_ context.Context, msg *types.Msg) ([]byte, error) {
	var req GetRoomRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}

	room, ok := m.engine.Room(req.RoomID)
	if !ok {
		return json.Marshal(GetRoomResponse{Found: false})
	}
	return json.Marshal(GetRoomResponse{
		Found:        true,
		RoomID:       room.ID,
		MessageCount: len(room.Messages),
		CreatedAt:    room.CreatedAt,
	})
}
