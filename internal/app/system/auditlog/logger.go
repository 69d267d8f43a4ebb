// Package auditlog records moderation decisions to MongoDB and to zap.
package auditlog

import (
	"context"
	"strconv"

	"github.com/dalemusser/directoryhub/internal/app/store/audit"
	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destination modes.
const (
	ModeAll = "all" // MongoDB + zap
	ModeDB  = "db"  // MongoDB only
	ModeLog = "log" // zap only
	ModeOff = "off"
)

// ValidMode reports whether m is a recognised destination mode.
func ValidMode(m string) bool {
	switch m {
	case ModeAll, ModeDB, ModeLog, ModeOff:
		return true
	}
	return false
}

// Config holds audit logging configuration.
type Config struct {
	// Moderation controls claim/review decision events.
	Moderation string
}

// Sink persists events. *audit.Store satisfies it.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger writes moderation audit events. A nil *Logger is a no-op, which
// lets core tests run without one.
type Logger struct {
	sink   Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(sink Sink, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	if config.Moderation == "" {
		config.Moderation = ModeAll
	}
	return &Logger{sink: sink, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("admin_id", event.ActorID.Hex()))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", event.SubjectID.Hex()))
	}
	if event.BusinessID != nil {
		fields = append(fields, zap.String("business_id", event.BusinessID.Hex()))
	}
	if event.BatchID != "" {
		fields = append(fields, zap.String("batch_id", event.BatchID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event according to the configured mode.
// A failure to persist is logged and otherwise ignored: the decision it
// describes has already been committed.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	if event.Category == "" {
		event.Category = audit.CategoryModeration
	}

	setting := l.config.Moderation
	if setting == ModeOff {
		return
	}
	if setting == ModeAll || setting == ModeLog {
		l.logToZap(event)
	}
	if (setting == ModeAll || setting == ModeDB) && l.sink != nil {
		if err := l.sink.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

type ctxKey struct{}

// WithBatchID tags every event recorded under ctx with a mass-action id.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, batchID)
}

// BatchIDFrom returns the mass-action id carried by ctx, if any.
func BatchIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func outcome(event *audit.Event, err error) {
	event.Success = err == nil
	if err != nil {
		event.FailureReason = string(apperr.KindOf(err))
	}
}

func oidPtr(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

// --- Claims ---

// Claim records a decision on an ownership claim. err is the outcome of the
// decision (nil on success). claim may be partially filled when the claim
// could not be loaded.
func (l *Logger) Claim(ctx context.Context, eventType string, actor primitive.ObjectID, claim models.OwnershipClaim, err error) {
	if l == nil {
		return
	}
	e := audit.Event{
		Category:   audit.CategoryModeration,
		EventType:  eventType,
		ActorID:    oidPtr(actor),
		UserID:     oidPtr(claim.UserID),
		SubjectID:  oidPtr(claim.ID),
		BusinessID: oidPtr(claim.BusinessID),
		BatchID:    BatchIDFrom(ctx),
	}
	outcome(&e, err)
	l.Log(ctx, e)
}

// --- Reviews ---

// Review records a decision on a review.
func (l *Logger) Review(ctx context.Context, eventType string, actor primitive.ObjectID, review models.Review, err error) {
	if l == nil {
		return
	}
	e := audit.Event{
		Category:   audit.CategoryModeration,
		EventType:  eventType,
		ActorID:    oidPtr(actor),
		SubjectID:  oidPtr(review.ID),
		BusinessID: oidPtr(review.BusinessID),
		BatchID:    BatchIDFrom(ctx),
		Details:    map[string]string{"rating": strconv.Itoa(review.Rating)},
	}
	if review.UserID != nil {
		e.UserID = oidPtr(*review.UserID)
	}
	outcome(&e, err)
	l.Log(ctx, e)
}

// --- Batches ---

// Batch records the summary of a mass action.
func (l *Logger) Batch(ctx context.Context, actor primitive.ObjectID, batchID, kind, action string, requested, succeeded int) {
	if l == nil {
		return
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryModeration,
		EventType: audit.EventBatchApplied,
		ActorID:   oidPtr(actor),
		BatchID:   batchID,
		Success:   succeeded == requested,
		Details: map[string]string{
			"kind":      kind,
			"action":    action,
			"requested": strconv.Itoa(requested),
			"succeeded": strconv.Itoa(succeeded),
		},
	})
}
