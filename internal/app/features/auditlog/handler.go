// internal/app/features/auditlog/handler.go
package auditlog

import (
	"context"

	"github.com/dalemusser/directoryhub/internal/app/store/audit"
	"go.uber.org/zap"
)

// EventQuerier reads persisted moderation events.
type EventQuerier interface {
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
	CountByFilter(ctx context.Context, filter audit.QueryFilter) (int64, error)
}

type Handler struct {
	Events EventQuerier
	Log    *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given event store and logger.
func NewHandler(events EventQuerier, logger *zap.Logger) *Handler {
	return &Handler{
		Events: events,
		Log:    logger,
	}
}
