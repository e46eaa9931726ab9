package main

import (
	"context"
	"log"
	"os"

	"github.com/example/chat-relay/config"
	"github.com/example/chat-relay/modules/activity"
	"github.com/example/chat-relay/modules/api"
	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/chat"
	"github.com/example/chat-relay/modules/wsserver"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Chat Relay - Fiber WebSocket + EventBus ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := mono.LogLevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = mono.LogLevelDebug
	case "warn":
		level = mono.LogLevelWarn
	case "error":
		level = mono.LogLevelError
	}
	format := mono.LogFormatText
	if cfg.LogFormat == "json" {
		format = mono.LogFormatJSON
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(level),
		mono.WithLogFormat(format),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	// Create modules
	chatModule := chat.NewModule(chat.EngineConfig{
		TypingTimeout:  cfg.TypingTimeout,
		MaxMessageLen:  cfg.MaxMessageLength,
		MaxRoomHistory: cfg.MaxRoomHistory,
	}, logger.WithModule("chat"))
	activityModule := activity.NewModule(logger.WithModule("activity"))
	broadcastModule := broadcast.NewModule(logger.WithModule("broadcast"))
	apiModule := api.NewModule(api.Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.Origins(),
	}, logger.WithModule("api"))

	// The hub and gateway are not exposed via ServiceContainer, so they are
	// wired by hand: engine effects flow to the hub, socket frames to the engine.
	hub := broadcastModule.GetHub()
	chatModule.SetTransport(hub)
	apiModule.SetHub(hub)
	apiModule.SetGateway(wsserver.NewGateway(chatModule, hub, wsserver.Config{
		MessagesPerSecond: cfg.MessagesPerSecond,
		BurstSize:         cfg.BurstSize,
	}, logger.WithModule("wsserver")))

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - chat: Core domain (ServiceProviderModule + EventEmitterModule)
	// - activity: Event consumer (counters behind /api/v1/stats)
	// - broadcast: WebSocket hub (chat.Transport)
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on chat and activity)
	app.Register(chatModule)
	app.Register(activityModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	logger.Info("Application started",
		"port", cfg.Port,
		"websocket", "/ws",
		"typingTimeout", cfg.TypingTimeout,
		"maxRoomHistory", cfg.MaxRoomHistory)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
