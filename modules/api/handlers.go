package api

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	// Health check
	app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.gateway.HandleWebSocket))

	// REST API v1
	api := app.Group("/api/v1")
	api.Get("/users", m.listUsers)
	api.Get("/rooms/:id", m.getRoom)
	api.Get("/stats", m.getStats)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module":            "api",
			"connected_clients": m.hub.ClientCount(),
		},
	})
}

// listUsers handles GET /api/v1/users.
func (m *APIModule) listUsers(c *fiber.Ctx) error {
	users, err := m.chatAdapter.ListUsers(c.UserContext())
	if err != nil {
		m.logger.Warn("Failed to list users", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "list_failed",
			Message: "Failed to list users",
		})
	}

	response := UserListResponse{
		Users: make([]UserResponse, 0, len(users)),
		Count: len(users),
	}
	for _, u := range users {
		response.Users = append(response.Users, UserResponse{ID: u.ID, Name: u.Name})
	}
	return c.JSON(response)
}

// getRoom handles GET /api/v1/rooms/:id.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	roomID := c.Params("id")

	room, err := m.chatAdapter.GetRoom(c.UserContext(), roomID)
	if err != nil {
		m.logger.Warn("Failed to get room", "roomID", roomID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "lookup_failed",
			Message: "Failed to get room",
		})
	}
	if !room.Found {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Room not found",
		})
	}

	return c.JSON(RoomResponse{
		ID:           room.RoomID,
		MessageCount: room.MessageCount,
		CreatedAt:    room.CreatedAt,
	})
}

// getStats handles GET /api/v1/stats.
func (m *APIModule) getStats(c *fiber.Ctx) error {
	stats, err := m.activityAdapter.GetStats(c.UserContext())
	if err != nil {
		m.logger.Warn("Failed to get stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "stats_failed",
			Message: "Failed to get stats",
		})
	}
	return c.JSON(stats)
}
