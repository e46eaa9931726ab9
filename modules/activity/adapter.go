package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ActivityPort defines the interface for reading activity counters.
type ActivityPort interface {
	GetStats(ctx context.Context) (*Summary, error)
}

type activityAdapter struct {
	container mono.ServiceContainer
}

// NewActivityAdapter creates a new adapter for the activity service.
func NewActivityAdapter(container mono.ServiceContainer) ActivityPort {
	if container == nil {
		panic("activity: ServiceContainer is nil")
	}
	return &activityAdapter{container: container}
}

// GetStats retrieves the activity summary.
func (a *activityAdapter) GetStats(ctx context.Context) (*Summary, error) {
	req := struct{}{}
	var resp Summary
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceGetStats,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("failed to get activity stats: %w", err)
	}
	return &resp, nil
}
