package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort defines the read-only chat operations available to other modules.
type ChatPort interface {
	ListUsers(ctx context.Context) ([]UserView, error)
	GetRoom(ctx context.Context, roomID string) (*GetRoomResponse, error)
}

// ChatAdapter implements ChatPort using the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) ChatPort {
	if container == nil {
		panic("chat: ServiceContainer is nil")
	}
	return &ChatAdapter{container: container}
}

// ListUsers returns the announced users.
func (a *ChatAdapter) ListUsers(ctx context.Context) ([]UserView, error) {
	req := ListUsersRequest{}
	var resp ListUsersResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceListUsers,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return resp.Users, nil
}

// GetRoom returns private room metadata. Found is false for unknown rooms.
func (a *ChatAdapter) GetRoom(ctx context.Context, roomID string) (*GetRoomResponse, error) {
	req := GetRoomRequest{RoomID: roomID}
	var resp GetRoomResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetRoom,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return &resp, nil
}
