// Package claimresolver runs the ownership-claim state machine:
//
//	pending ──approve──► approved ──revoke──► revoked
//	   └─────reject────► rejected
//
// Approval writes the claimant onto the business as owner; revocation clears
// it again if nobody has replaced them since. Every transition is a
// conditional write on the expected prior status, so two admins acting on the
// same claim cannot both succeed.
package claimresolver

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/store/audit"
	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/auditlog"
	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/directoryhub/internal/app/system/inputval"
	"github.com/dalemusser/directoryhub/internal/app/system/metrics"
	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ClaimStore is the claims collection.
type ClaimStore interface {
	Create(ctx context.Context, c models.OwnershipClaim) (models.OwnershipClaim, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.OwnershipClaim, error)
	HasPending(ctx context.Context, businessID, userID primitive.ObjectID) (bool, error)
	HasApproved(ctx context.Context, businessID primitive.ObjectID) (bool, error)
	Transition(ctx context.Context, id primitive.ObjectID, from string, d models.Decision) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f models.ClaimFilter, after primitive.ObjectID) ([]models.OwnershipClaim, error)
}

// BusinessStore is the part of the businesses collection claims write to.
type BusinessStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Business, error)
	SetOwner(ctx context.Context, id, userID primitive.ObjectID) error
	ClearOwnerIf(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
}

// UserStore resolves claimants for direct assignment.
type UserStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Transactor groups a claim write with its business write.
type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Deps wires a Resolver.
type Deps struct {
	Claims     ClaimStore
	Businesses BusinessStore
	Users      UserStore
	Tx         Transactor
	Audit      *auditlog.Logger
	Metrics    *metrics.Metrics
	Log        *zap.Logger
	Now        func() time.Time
}

// Resolver applies claim decisions.
type Resolver struct {
	claims     ClaimStore
	businesses BusinessStore
	users      UserStore
	tx         Transactor
	audit      *auditlog.Logger
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
}

func New(d Deps) *Resolver {
	r := &Resolver{
		claims:     d.Claims,
		businesses: d.Businesses,
		users:      d.Users,
		tx:         d.Tx,
		audit:      d.Audit,
		metrics:    d.Metrics,
		log:        d.Log,
		now:        d.Now,
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.tx == nil {
		r.tx = direct{}
	}
	return r
}

type direct struct{}

func (direct) Run(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

const entity = "claim"

// Request shapes checked with inputval.
type submitInput struct {
	Message string `validate:"notblank,max=2000" label:"Message"`
}

type noteInput struct {
	Note string `validate:"max=2000" label:"Admin message"`
}

type assignInput struct {
	Message string `validate:"max=2000" label:"Message"`
}

func cleanNote(note *string) (*string, error) {
	note = htmlsanitize.OptionalPlainText(note)
	if note != nil {
		if err := inputval.Check(noteInput{Note: *note}); err != nil {
			return nil, err
		}
	}
	return note, nil
}

/* --------------------------------- submit --------------------------------- */

// Submit files a pending claim by the caller on businessID. It never touches
// the business record.
func (r *Resolver) Submit(ctx context.Context, caller authz.Caller, businessID primitive.ObjectID, message string) (models.OwnershipClaim, error) {
	if err := authz.RequireSignedIn(caller); err != nil {
		return models.OwnershipClaim{}, err
	}

	message = htmlsanitize.PlainText(message)
	if err := inputval.Check(submitInput{Message: message}); err != nil {
		return models.OwnershipClaim{}, err
	}

	if _, err := r.business(ctx, businessID); err != nil {
		return models.OwnershipClaim{}, err
	}

	pending, err := r.claims.HasPending(ctx, businessID, caller.ID)
	if err != nil {
		return models.OwnershipClaim{}, err
	}
	if pending {
		return models.OwnershipClaim{}, apperr.Conflict("you already have a pending claim for this business")
	}

	claim, err := r.claims.Create(ctx, models.OwnershipClaim{
		BusinessID: businessID,
		UserID:     caller.ID,
		Message:    message,
		Status:     models.ClaimPending,
		CreatedAt:  r.now().UTC(),
	})
	if errors.Is(err, sentinel.ErrDuplicate) {
		// Lost a race with a concurrent submit.
		return models.OwnershipClaim{}, apperr.Conflict("you already have a pending claim for this business")
	}
	if err != nil {
		return models.OwnershipClaim{}, err
	}

	r.metrics.Decision(entity, "submit", nil)
	r.audit.Claim(ctx, audit.EventClaimSubmitted, caller.ID, claim, nil)
	r.log.Info("claim submitted",
		zap.String("claim_id", claim.ID.Hex()),
		zap.String("business_id", businessID.Hex()),
		zap.String("user_id", caller.ID.Hex()))
	return claim, nil
}

/* -------------------------------- decisions ------------------------------- */

// Approve moves a pending claim to approved and makes the claimant the owner
// of the business. Fails with Conflict while the business has another
// approved claim; the admin revokes that one first.
func (r *Resolver) Approve(ctx context.Context, caller authz.Caller, claimID primitive.ObjectID, note *string) (claim models.OwnershipClaim, err error) {
	defer func() { r.record(ctx, "approve", audit.EventClaimApproved, caller, claimID, claim, err) }()

	claim, note, err = r.prepare(ctx, caller, claimID, note, models.ClaimPending)
	if err != nil {
		return claim, err
	}

	d := r.decision(caller, models.ClaimApproved, note)
	err = r.tx.Run(ctx, func(ctx context.Context) error {
		approved, err := r.claims.HasApproved(ctx, claim.BusinessID)
		if err != nil {
			return err
		}
		if approved {
			return errOwned
		}
		if err := r.claims.Transition(ctx, claim.ID, models.ClaimPending, d); err != nil {
			return err
		}
		return r.businesses.SetOwner(ctx, claim.BusinessID, claim.UserID)
	})
	if err != nil {
		return claim, r.translate(ctx, claim, err)
	}

	apply(&claim, d)
	r.log.Info("claim approved",
		zap.String("claim_id", claim.ID.Hex()),
		zap.String("business_id", claim.BusinessID.Hex()),
		zap.String("user_id", claim.UserID.Hex()),
		zap.String("admin_id", caller.ID.Hex()))
	return claim, nil
}

// Reject closes a pending claim. The business is not touched.
func (r *Resolver) Reject(ctx context.Context, caller authz.Caller, claimID primitive.ObjectID, note *string) (claim models.OwnershipClaim, err error) {
	defer func() { r.record(ctx, "reject", audit.EventClaimRejected, caller, claimID, claim, err) }()

	claim, note, err = r.prepare(ctx, caller, claimID, note, models.ClaimPending)
	if err != nil {
		return claim, err
	}

	d := r.decision(caller, models.ClaimRejected, note)
	if err = r.claims.Transition(ctx, claim.ID, models.ClaimPending, d); err != nil {
		return claim, r.translate(ctx, claim, err)
	}
	apply(&claim, d)
	return claim, nil
}

// Revoke withdraws an approved claim. The business owner is cleared only if
// it is still the claimant.
func (r *Resolver) Revoke(ctx context.Context, caller authz.Caller, claimID primitive.ObjectID, note *string) (claim models.OwnershipClaim, err error) {
	defer func() { r.record(ctx, "revoke", audit.EventClaimRevoked, caller, claimID, claim, err) }()

	claim, note, err = r.prepare(ctx, caller, claimID, note, models.ClaimApproved)
	if err != nil {
		return claim, err
	}

	d := r.decision(caller, models.ClaimRevoked, note)
	var cleared bool
	err = r.tx.Run(ctx, func(ctx context.Context) error {
		if err := r.claims.Transition(ctx, claim.ID, models.ClaimApproved, d); err != nil {
			return err
		}
		var err error
		cleared, err = r.businesses.ClearOwnerIf(ctx, claim.BusinessID, claim.UserID)
		return err
	})
	if err != nil {
		return claim, r.translate(ctx, claim, err)
	}

	apply(&claim, d)
	r.log.Info("claim revoked",
		zap.String("claim_id", claim.ID.Hex()),
		zap.String("business_id", claim.BusinessID.Hex()),
		zap.Bool("owner_cleared", cleared),
		zap.String("admin_id", caller.ID.Hex()))
	return claim, nil
}

// Delete removes a claim in any status. Ownership is never changed, even for
// an approved claim; revoke first to clear the owner.
func (r *Resolver) Delete(ctx context.Context, caller authz.Caller, claimID primitive.ObjectID) (err error) {
	var claim models.OwnershipClaim
	defer func() { r.record(ctx, "delete", audit.EventClaimDeleted, caller, claimID, claim, err) }()

	if err = authz.RequireAdmin(caller); err != nil {
		return err
	}
	if claim, err = r.load(ctx, claimID); err != nil {
		return err
	}
	if err = r.claims.Delete(ctx, claimID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return apperr.NotFound("claim not found")
		}
		return err
	}
	return nil
}

// AssignOwner makes userID the owner of businessID directly. It is recorded
// as an already-approved claim so ownership always traces back to one.
func (r *Resolver) AssignOwner(ctx context.Context, caller authz.Caller, businessID, userID primitive.ObjectID, message string) (claim models.OwnershipClaim, err error) {
	defer func() {
		r.metrics.Decision(entity, "assign", err)
		r.audit.Claim(ctx, audit.EventOwnerAssigned, caller.ID, claim, err)
	}()

	if err = authz.RequireAdmin(caller); err != nil {
		return claim, err
	}
	message = htmlsanitize.PlainText(message)
	if err = inputval.Check(assignInput{Message: message}); err != nil {
		return claim, err
	}
	if message == "" {
		message = "Assigned by an administrator."
	}
	claim.BusinessID, claim.UserID = businessID, userID

	if _, err = r.business(ctx, businessID); err != nil {
		return claim, err
	}
	if _, err = r.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return claim, apperr.NotFound("user not found")
		}
		return claim, err
	}

	now := r.now().UTC()
	err = r.tx.Run(ctx, func(ctx context.Context) error {
		approved, err := r.claims.HasApproved(ctx, businessID)
		if err != nil {
			return err
		}
		if approved {
			return errOwned
		}
		created, err := r.claims.Create(ctx, models.OwnershipClaim{
			BusinessID: businessID,
			UserID:     userID,
			Message:    message,
			Status:     models.ClaimApproved,
			ReviewedBy: &caller.ID,
			ReviewedAt: &now,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		claim = created
		return r.businesses.SetOwner(ctx, businessID, userID)
	})
	if err != nil {
		return claim, r.translate(ctx, claim, err)
	}

	r.log.Info("owner assigned",
		zap.String("claim_id", claim.ID.Hex()),
		zap.String("business_id", businessID.Hex()),
		zap.String("user_id", userID.Hex()),
		zap.String("admin_id", caller.ID.Hex()))
	return claim, nil
}

/* --------------------------------- reads ---------------------------------- */

// Get returns one claim to an admin.
func (r *Resolver) Get(ctx context.Context, caller authz.Caller, claimID primitive.ObjectID) (models.OwnershipClaim, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return models.OwnershipClaim{}, err
	}
	return r.load(ctx, claimID)
}

// List pages through claims for the back office.
func (r *Resolver) List(ctx context.Context, caller authz.Caller, f models.ClaimFilter, after primitive.ObjectID) (paging.Page[models.OwnershipClaim], error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return paging.Page[models.OwnershipClaim]{}, err
	}
	return r.list(ctx, f, after)
}

// ListMine pages through the caller's own claims, any status.
func (r *Resolver) ListMine(ctx context.Context, caller authz.Caller, after primitive.ObjectID) (paging.Page[models.OwnershipClaim], error) {
	if err := authz.RequireSignedIn(caller); err != nil {
		return paging.Page[models.OwnershipClaim]{}, err
	}
	return r.list(ctx, models.ClaimFilter{UserID: &caller.ID}, after)
}

func (r *Resolver) list(ctx context.Context, f models.ClaimFilter, after primitive.ObjectID) (paging.Page[models.OwnershipClaim], error) {
	rows, err := r.claims.List(ctx, f, after)
	if err != nil {
		return paging.Page[models.OwnershipClaim]{}, err
	}
	return paging.NewPage(rows, func(c models.OwnershipClaim) primitive.ObjectID { return c.ID }), nil
}

/* -------------------------------- helpers --------------------------------- */

// errOwned is returned from inside a transaction when the business already
// has an approved claim.
var errOwned = errors.New("business already owned")

// prepare runs the checks shared by every decision: admin, note, existence,
// and expected status.
func (r *Resolver) prepare(ctx context.Context, caller authz.Caller, claimID primitive.ObjectID, note *string, want string) (models.OwnershipClaim, *string, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return models.OwnershipClaim{}, nil, err
	}
	note, err := cleanNote(note)
	if err != nil {
		return models.OwnershipClaim{}, nil, err
	}
	claim, err := r.load(ctx, claimID)
	if err != nil {
		return models.OwnershipClaim{}, nil, err
	}
	if claim.Status != want {
		return claim, nil, notIn(claim.Status, want)
	}
	return claim, note, nil
}

func (r *Resolver) load(ctx context.Context, id primitive.ObjectID) (models.OwnershipClaim, error) {
	c, err := r.claims.GetByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.OwnershipClaim{}, apperr.NotFound("claim not found")
	}
	return c, err
}

func (r *Resolver) business(ctx context.Context, id primitive.ObjectID) (models.Business, error) {
	b, err := r.businesses.GetByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Business{}, apperr.NotFound("business not found")
	}
	return b, err
}

func (r *Resolver) decision(caller authz.Caller, status string, note *string) models.Decision {
	return models.Decision{Status: status, Note: note, By: caller.ID, At: r.now().UTC()}
}

// translate turns store facts from a write into caller-facing errors. A lost
// conditional update is re-read so the caller learns the current state.
func (r *Resolver) translate(ctx context.Context, claim models.OwnershipClaim, err error) error {
	switch {
	case errors.Is(err, errOwned), errors.Is(err, sentinel.ErrDuplicate):
		// A pending claim that was decided by someone else in the meantime
		// reports its new state, not the owner it now holds.
		if !claim.ID.IsZero() && claim.Status == models.ClaimPending {
			current, gerr := r.load(ctx, claim.ID)
			if gerr != nil {
				return gerr
			}
			if current.Status != models.ClaimPending {
				return apperr.InvalidState("claim is " + current.Status)
			}
		}
		return apperr.Wrap(apperr.KindConflict, "business already has an approved owner; revoke that claim first", err)
	case errors.Is(err, sentinel.ErrStateChanged):
		current, gerr := r.load(ctx, claim.ID)
		if gerr != nil {
			return gerr
		}
		return apperr.InvalidState("claim is " + current.Status)
	case errors.Is(err, sentinel.ErrNotFound):
		return apperr.NotFound("business not found")
	}
	return err
}

func notIn(have, want string) error {
	return apperr.Newf(apperr.KindInvalidState, "claim is %s, not %s", have, want)
}

func apply(c *models.OwnershipClaim, d models.Decision) {
	by, at := d.By, d.At
	c.Status = d.Status
	c.ReviewedBy = &by
	c.ReviewedAt = &at
	if d.Note != nil {
		c.AdminMessage = d.Note
	}
	c.UpdatedAt = at
}

func (r *Resolver) record(ctx context.Context, action, event string, caller authz.Caller, claimID primitive.ObjectID, claim models.OwnershipClaim, err error) {
	if claim.ID.IsZero() {
		claim.ID = claimID
	}
	r.metrics.Decision(entity, action, err)
	r.audit.Claim(ctx, event, caller.ID, claim, err)
	if err != nil && apperr.KindOf(err) == apperr.KindInternal {
		r.log.Error("claim decision failed",
			zap.String("action", action),
			zap.String("claim_id", claimID.Hex()),
			zap.Error(err))
	}
}
