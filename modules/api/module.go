package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/chat-relay/modules/activity"
	"github.com/example/chat-relay/modules/chat"
	"github.com/example/chat-relay/modules/wsserver"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// ClientCounter reports the number of live WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

// WebSocketHandler serves upgraded connections.
type WebSocketHandler interface {
	HandleWebSocket(c *websocket.Conn)
}

// Config configures the HTTP server.
type Config struct {
	Port           string
	AllowedOrigins []string
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	app             *fiber.App
	chatAdapter     chat.ChatPort
	activityAdapter activity.ActivityPort
	hub             ClientCounter
	gateway         WebSocketHandler
	cfg             Config
	logger          types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)
var _ WebSocketHandler = (*wsserver.Gateway)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	if cfg.Port == "" {
		cfg.Port = "3000"
	}
	return &APIModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"chat", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "chat":
		m.chatAdapter = chat.NewChatAdapter(container)
	case "activity":
		m.activityAdapter = activity.NewActivityAdapter(container)
	}
}

// SetHub sets the broadcast hub (called from main.go).
func (m *APIModule) SetHub(hub ClientCounter) {
	m.hub = hub
}

// SetGateway sets the WebSocket gateway (called from main.go).
func (m *APIModule) SetGateway(gateway WebSocketHandler) {
	m.gateway = gateway
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	app, err := m.newApp()
	if err != nil {
		return err
	}
	m.app = app

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(":" + m.cfg.Port); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "port", m.cfg.Port)
	return nil
}

// newApp builds the Fiber app with middleware and routes.
func (m *APIModule) newApp() (*fiber.App, error) {
	if m.chatAdapter == nil {
		return nil, fmt.Errorf("chat adapter dependency not set")
	}
	if m.activityAdapter == nil {
		return nil, fmt.Errorf("activity adapter dependency not set")
	}
	if m.hub == nil {
		return nil, fmt.Errorf("broadcast hub dependency not set")
	}
	if m.gateway == nil {
		return nil, fmt.Errorf("websocket gateway dependency not set")
	}

	app := fiber.New(fiber.Config{
		AppName:               "Chat Relay",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(m.cfg.AllowedOrigins, ","),
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	m.setupRoutes(app)
	return app, nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.cfg.Port}
	if m.hub != nil {
		details["connected_clients"] = m.hub.ClientCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// errorHandler handles errors globally.
func (m *APIModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
