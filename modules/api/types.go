package api

import "time"

// UserResponse is the API response for an announced user.
type UserResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserListResponse is the API response for listing users.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// RoomResponse is the API response for a private room. Message bodies are never exposed.
type RoomResponse struct {
	ID           string    `json:"id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}
