package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/chat-relay/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// Module consumes chat events and keeps activity counters.
type Module struct {
	store  *Store
	logger types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new activity module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		store:  NewStore(),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "activity"
}

// RegisterEventConsumers registers handlers for the chat events.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserJoinedV1, m.handleUserJoined, m,
	); err != nil {
		return fmt.Errorf("failed to register UserJoined consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.UserLeftV1, m.handleUserLeft, m,
	); err != nil {
		return fmt.Errorf("failed to register UserLeft consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageSentV1, m.handleMessageSent, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}

	if err := helper.RegisterTypedEventConsumer(
		registry, events.PrivateChatStartedV1, m.handlePrivateChatStarted, m,
	); err != nil {
		return fmt.Errorf("failed to register PrivateChatStarted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", []string{"UserJoined.v1", "UserLeft.v1", "MessageSent.v1", "PrivateChatStarted.v1"})
	return nil
}

// RegisterServices registers the stats service.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := container.RegisterRequestReplyService(ServiceGetStats, m.handleGetStats); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceGetStats, err)
	}
	m.logger.Info("Registered activity services", "services", []string{ServiceGetStats})
	return nil
}

func (m *Module) handleUserJoined(_ context.Context, event events.UserJoinedEvent, _ *mono.Msg) error {
	m.store.RecordJoin(event.Online, event.Timestamp)
	m.logger.Debug("Recorded join", "userID", event.UserID, "online", event.Online)
	return nil
}

func (m *Module) handleUserLeft(_ context.Context, event events.UserLeftEvent, _ *mono.Msg) error {
	m.store.RecordLeave(event.Online, event.Timestamp)
	m.logger.Debug("Recorded leave", "userID", event.UserID, "online", event.Online)
	return nil
}

func (m *Module) handleMessageSent(_ context.Context, event events.MessageSentEvent, _ *mono.Msg) error {
	m.store.RecordMessage(event.Private, event.Length, event.Timestamp)
	return nil
}

func (m *Module) handlePrivateChatStarted(_ context.Context, event events.PrivateChatStartedEvent, _ *mono.Msg) error {
	m.store.RecordPrivateChat(event.Created, event.Timestamp)
	m.logger.Debug("Recorded private chat", "roomID", event.RoomID, "created", event.Created)
	return nil
}

func (m *Module) handleGetStats(_ context.Context, _ *types.Msg) ([]byte, error) {
	return json.Marshal(m.store.Summary())
}

// Start initializes the activity module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Activity module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Activity module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	summary := m.store.Summary()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"online":      summary.Online,
			"peak_online": summary.PeakOnline,
		},
	}
}

// Store returns the activity store.
func (m *Module) Store() *Store {
	return m.store
}
