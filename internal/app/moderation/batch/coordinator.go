// Package batch applies one moderation decision to many claims or reviews.
//
// Items run one at a time, in request order, through the same single-item
// operations the per-item endpoints use. A failing item is recorded and the
// batch moves on; nothing is rolled back.
package batch

import (
	"context"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/auditlog"
	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/inputval"
	"github.com/dalemusser/directoryhub/internal/app/system/metrics"
	"github.com/dalemusser/directoryhub/internal/app/system/normalize"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Entity kinds.
const (
	KindClaim  = "claim"
	KindReview = "review"
)

// Actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionRevoke  = "revoke"
	ActionDelete  = "delete"
)

// DefaultMaxItems caps a batch when no limit is configured.
const DefaultMaxItems = 500

var actions = map[string]map[string]bool{
	KindClaim:  {ActionApprove: true, ActionReject: true, ActionRevoke: true, ActionDelete: true},
	KindReview: {ActionApprove: true, ActionReject: true, ActionDelete: true},
}

// ClaimDecider is the single-item claim surface.
type ClaimDecider interface {
	Approve(ctx context.Context, caller authz.Caller, id primitive.ObjectID, note *string) (models.OwnershipClaim, error)
	Reject(ctx context.Context, caller authz.Caller, id primitive.ObjectID, note *string) (models.OwnershipClaim, error)
	Revoke(ctx context.Context, caller authz.Caller, id primitive.ObjectID, note *string) (models.OwnershipClaim, error)
	Delete(ctx context.Context, caller authz.Caller, id primitive.ObjectID) error
}

// ReviewDecider is the single-item review surface.
type ReviewDecider interface {
	Approve(ctx context.Context, caller authz.Caller, id primitive.ObjectID, notes *string) (models.Review, error)
	Reject(ctx context.Context, caller authz.Caller, id primitive.ObjectID, notes *string) (models.Review, error)
	Delete(ctx context.Context, caller authz.Caller, id primitive.ObjectID) error
}

// Request is one mass action.
type Request struct {
	Kind    string   `json:"kind" validate:"oneof=claim review" label:"Kind"`
	Action  string   `json:"action" validate:"oneof=approve reject revoke delete" label:"Action"`
	IDs     []string `json:"ids" validate:"min=1,unique" label:"IDs"`
	Message *string  `json:"message,omitempty"`
}

// Failure is one item that did not go through.
type Failure struct {
	ItemID string      `json:"item_id"`
	Kind   apperr.Kind `json:"kind"`
	Reason string      `json:"reason"`
}

// Result accounts for every requested id: SucceededCount + len(Failures)
// always equals RequestedCount.
type Result struct {
	BatchID        string    `json:"batch_id"`
	Kind           string    `json:"kind"`
	Action         string    `json:"action"`
	RequestedCount int       `json:"requested_count"`
	SucceededCount int       `json:"succeeded_count"`
	Failures       []Failure `json:"failures"`
}

// Deps wires a Coordinator.
type Deps struct {
	Claims   ClaimDecider
	Reviews  ReviewDecider
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	MaxItems int
}

// Coordinator runs batches.
type Coordinator struct {
	claims   ClaimDecider
	reviews  ReviewDecider
	audit    *auditlog.Logger
	metrics  *metrics.Metrics
	log      *zap.Logger
	maxItems int
	newID    func() string
}

func New(d Deps) *Coordinator {
	c := &Coordinator{
		claims:   d.Claims,
		reviews:  d.Reviews,
		audit:    d.Audit,
		metrics:  d.Metrics,
		log:      d.Log,
		maxItems: d.MaxItems,
		newID:    uuid.NewString,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.maxItems <= 0 {
		c.maxItems = DefaultMaxItems
	}
	return c
}

// Apply runs req for an admin caller. It fails as a whole only when the
// caller is not an admin or the request itself is malformed; everything that
// goes wrong with an individual id lands in Result.Failures.
func (c *Coordinator) Apply(ctx context.Context, caller authz.Caller, req Request) (Result, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return Result{}, err
	}
	if req.IDs != nil {
		ids := make([]string, len(req.IDs))
		for i, raw := range req.IDs {
			ids[i] = normalize.ID(raw)
		}
		req.IDs = ids
	}
	if err := c.check(req); err != nil {
		return Result{}, err
	}

	res := Result{
		BatchID:        c.newID(),
		Kind:           req.Kind,
		Action:         req.Action,
		RequestedCount: len(req.IDs),
		Failures:       []Failure{},
	}
	ctx = auditlog.WithBatchID(ctx, res.BatchID)
	start := time.Now()

	for _, raw := range req.IDs {
		if err := c.one(ctx, caller, req, raw); err != nil {
			res.Failures = append(res.Failures, failure(raw, err))
			continue
		}
		res.SucceededCount++
	}

	c.metrics.ObserveBatch(res.RequestedCount, time.Since(start))
	c.audit.Batch(ctx, caller.ID, res.BatchID, res.Kind, res.Action, res.RequestedCount, res.SucceededCount)
	c.log.Info("batch applied",
		zap.String("batch_id", res.BatchID),
		zap.String("kind", res.Kind),
		zap.String("action", res.Action),
		zap.Int("requested", res.RequestedCount),
		zap.Int("succeeded", res.SucceededCount),
		zap.String("admin_id", caller.ID.Hex()))
	return res, nil
}

func (c *Coordinator) check(req Request) error {
	if err := inputval.Check(req); err != nil {
		return err
	}
	if !actions[req.Kind][req.Action] {
		return apperr.Newf(apperr.KindValidation, "%s is not a %s action.", req.Action, req.Kind)
	}
	if len(req.IDs) > c.maxItems {
		return apperr.Newf(apperr.KindValidation, "IDs must have at most %d items.", c.maxItems)
	}
	return nil
}

func (c *Coordinator) one(ctx context.Context, caller authz.Caller, req Request, raw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return apperr.Validation("not a valid id")
	}

	switch req.Kind {
	case KindClaim:
		switch req.Action {
		case ActionApprove:
			_, err = c.claims.Approve(ctx, caller, id, req.Message)
		case ActionReject:
			_, err = c.claims.Reject(ctx, caller, id, req.Message)
		case ActionRevoke:
			_, err = c.claims.Revoke(ctx, caller, id, req.Message)
		case ActionDelete:
			err = c.claims.Delete(ctx, caller, id)
		}
	case KindReview:
		switch req.Action {
		case ActionApprove:
			_, err = c.reviews.Approve(ctx, caller, id, req.Message)
		case ActionReject:
			_, err = c.reviews.Reject(ctx, caller, id, req.Message)
		case ActionDelete:
			err = c.reviews.Delete(ctx, caller, id)
		}
	}
	return err
}

func failure(itemID string, err error) Failure {
	return Failure{ItemID: itemID, Kind: apperr.KindOf(err), Reason: apperr.Message(err)}
}
