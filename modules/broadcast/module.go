package broadcast

import (
	"context"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// BroadcastModule owns the WebSocket hub that delivers chat effects to clients.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(logger types.Logger) *BroadcastModule {
	return &BroadcastModule{
		hub:    NewHub(logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start initializes the module and starts the hub.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	m.logger.Info("Broadcast module started")
	return nil
}

// Stop shuts down the module.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	m.logger.Info("Broadcast module stopped", "clients", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"groups":            m.hub.GroupCount(),
		},
	}
}

// GetHub returns the WebSocket hub for the other modules to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}
