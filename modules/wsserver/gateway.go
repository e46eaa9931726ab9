package wsserver

import (
	"encoding/json"
	"fmt"

	"github.com/example/chat-relay/modules/broadcast"
	"github.com/example/chat-relay/modules/chat"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Rate limiting defaults
const (
	DefaultMessagesPerSecond = 10
	DefaultBurstSize         = 20

	maxFrameBytes = 64 * 1024
)

// Dispatcher handles decoded chat events.
type Dispatcher interface {
	Dispatch(ev chat.Event)
}

// ClientHub tracks live clients for outbound delivery.
type ClientHub interface {
	Register(client *broadcast.Client)
	Unregister(client *broadcast.Client)
}

// Config configures a Gateway.
type Config struct {
	MessagesPerSecond int
	BurstSize         int
}

// Gateway bridges WebSocket connections to the chat engine. Each connection
// gets a fresh id, its own write pump, and an inbound token bucket.
type Gateway struct {
	dispatcher Dispatcher
	hub        ClientHub
	cfg        Config
	logger     types.Logger
}

// NewGateway creates a new Gateway.
func NewGateway(dispatcher Dispatcher, hub ClientHub, cfg Config, logger types.Logger) *Gateway {
	if cfg.MessagesPerSecond <= 0 {
		cfg.MessagesPerSecond = DefaultMessagesPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	return &Gateway{
		dispatcher: dispatcher,
		hub:        hub,
		cfg:        cfg,
		logger:     logger,
	}
}

// HandleWebSocket serves one connection until it closes.
func (g *Gateway) HandleWebSocket(c *websocket.Conn) {
	connID := uuid.New().String()
	client := broadcast.NewClient(connID, c)
	limiter := g.newLimiter()

	go client.WritePump()
	g.hub.Register(client)
	g.dispatcher.Dispatch(chat.Connect{ConnID: connID})
	g.logger.Info("WebSocket connected", "connID", connID)

	defer func() {
		g.dispatcher.Dispatch(chat.Disconnect{ConnID: connID})
		g.hub.Unregister(client)
		<-client.Done()
		g.logger.Info("WebSocket disconnected", "connID", connID)
	}()

	c.SetReadLimit(maxFrameBytes)
	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				g.logger.Warn("WebSocket read error", "connID", connID, "error", err)
			}
			return
		}

		if !limiter.Allow() {
			g.logger.Debug("Inbound frame rate limited", "connID", connID)
			continue
		}

		if err := g.handleFrame(connID, raw); err != nil {
			g.logger.Debug("Inbound frame dropped", "connID", connID, "error", err)
		}
	}
}

// newLimiter returns the inbound token bucket for one connection.
func (g *Gateway) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(g.cfg.MessagesPerSecond), g.cfg.BurstSize)
}

// handleFrame decodes one inbound frame and dispatches it.
func (g *Gateway) handleFrame(connID string, raw []byte) error {
	var frame chat.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return fmt.Errorf("%w: %v", chat.ErrMalformedEvent, err)
	}

	ev, err := chat.DecodeEvent(connID, frame)
	if err != nil {
		return err
	}

	g.dispatcher.Dispatch(ev)
	return nil
}
