package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/freeeve/civ-balance/api/internal/model"
)

// RunRepository archives finished simulation runs (Postgres).
type RunRepository interface {
	Save(ctx context.Context, run *model.Run) error
	FindByID(ctx context.Context, id string) (*model.Run, error)
	ListRecent(ctx context.Context, limit int) ([]model.Run, error)
}

// ProgressCache publishes live simulation state (Redis).
type ProgressCache interface {
	SetSnapshot(ctx context.Context, snapshot json.RawMessage) error
	SetInsights(ctx context.Context, runID string, report json.RawMessage, ttl time.Duration) error
	GetInsights(ctx context.Context, runID string) (json.RawMessage, error)
	PublishEvent(ctx context.Context, event json.RawMessage) error
}
