// Package reviewmod moderates visitor reviews. A review counts toward its
// business's rating only while approved; the aggregate is always recomputed
// from the full approved set rather than adjusted in place.
package reviewmod

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

// ReviewStore is the reviews collection.
type ReviewStore interface {
	Create(ctx context.Context, r models.Review) (models.Review, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Review, error)
	Transition(ctx context.Context, id primitive.ObjectID, from string, d models.Decision) error
	Delete(ctx context.Context, id primitive.ObjectID) (models.Review, error)
	ApprovedStats(ctx context.Context, businessID primitive.ObjectID) (models.RatingStats, error)
	List(ctx context.Context, f models.ReviewFilter, after primitive.ObjectID) ([]models.Review, error)
}

// BusinessStore holds the derived rating.
type BusinessStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Business, error)
	SetRating(ctx context.Context, id primitive.ObjectID, stats models.RatingStats) error
}

type Transactor interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

type Deps struct {
	Reviews    ReviewStore
	Businesses BusinessStore
	Tx         Transactor
	Audit      *auditlog.Logger
	Metrics    *metrics.Metrics
	Log        *zap.Logger
	Now        func() time.Time
}

// Moderator applies review decisions.
type Moderator struct {
	reviews    ReviewStore
	businesses BusinessStore
	tx         Transactor
	audit      *auditlog.Logger
	metrics    *metrics.Metrics
	log        *zap.Logger
	now        func() time.Time
}

func New(d Deps) *Moderator {
	m := &Moderator{
		reviews:    d.Reviews,
		businesses: d.Businesses,
		tx:         d.Tx,
		audit:      d.Audit,
		metrics:    d.Metrics,
		log:        d.Log,
		now:        d.Now,
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.tx == nil {
		m.tx = direct{}
	}
	return m
}

type direct struct{}

func (direct) Run(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

const entity = "review"

// Submission is what a visitor sends.
type Submission struct {
	ReviewerName string `json:"reviewer_name" validate:"notblank,max=100" label:"Name"`
	Rating       int    `json:"rating" validate:"min=1,max=5" label:"Rating"`
	Comment      string `json:"comment" validate:"notblank,max=5000" label:"Comment"`
}

type noteInput struct {
	Note string `validate:"max=2000" label:"Moderator notes"`
}

/* --------------------------------- submit --------------------------------- */

// Submit records a pending review. Anonymous visitors may submit; a signed-in
// caller is stamped as the author and their name fills a blank reviewer name.
// Pending reviews are not public and do not affect the rating.
func (m *Moderator) Submit(ctx context.Context, caller authz.Caller, businessID primitive.ObjectID, in Submission) (models.Review, error) {
	in.ReviewerName = htmlsanitize.PlainText(in.ReviewerName)
	in.Comment = htmlsanitize.PlainText(in.Comment)
	if in.ReviewerName == "" && caller.Authenticated() {
		in.ReviewerName = caller.Name
	}
	if err := inputval.Check(in); err != nil {
		return models.Review{}, err
	}

	if _, err := m.business(ctx, businessID); err != nil {
		return models.Review{}, err
	}

	r := models.Review{
		BusinessID:   businessID,
		ReviewerName: in.ReviewerName,
		Rating:       in.Rating,
		Comment:      in.Comment,
		Status:       models.ReviewPending,
	}
	if caller.Authenticated() {
		uid := caller.ID
		r.UserID = &uid
	}

	created, err := m.reviews.Create(ctx, r)
	if err != nil {
		return models.Review{}, err
	}

	m.metrics.Decision(entity, "submit", nil)
	m.audit.Review(ctx, audit.EventReviewSubmitted, caller.ID, created, nil)
	m.log.Info("review submitted",
		zap.String("review_id", created.ID.Hex()),
		zap.String("business_id", businessID.Hex()),
		zap.Int("rating", created.Rating))
	return created, nil
}

/* -------------------------------- decisions ------------------------------- */

// Approve publishes a pending review and recomputes the business rating.
func (m *Moderator) Approve(ctx context.Context, caller authz.Caller, reviewID primitive.ObjectID, notes *string) (rev models.Review, err error) {
	defer func() { m.record(ctx, "approve", audit.EventReviewApproved, caller, reviewID, rev, err) }()

	rev, notes, err = m.prepare(ctx, caller, reviewID, notes)
	if err != nil {
		return rev, err
	}

	d := m.decision(caller, models.ReviewApproved, notes)
	var stats models.RatingStats
	err = m.tx.Run(ctx, func(ctx context.Context) error {
		if err := m.reviews.Transition(ctx, rev.ID, models.ReviewPending, d); err != nil {
			return err
		}
		var err error
		stats, err = m.recompute(ctx, rev.BusinessID)
		return err
	})
	if err != nil {
		return rev, m.translate(ctx, rev, err)
	}

	apply(&rev, d)
	m.log.Info("review approved",
		zap.String("review_id", rev.ID.Hex()),
		zap.String("business_id", rev.BusinessID.Hex()),
		zap.Float64("rating_aggregate", stats.Average),
		zap.Int("rating_count", stats.Count),
		zap.String("admin_id", caller.ID.Hex()))
	return rev, nil
}

// Reject closes a pending review without publishing it. Approved reviews
// cannot be rejected; delete them instead.
func (m *Moderator) Reject(ctx context.Context, caller authz.Caller, reviewID primitive.ObjectID, notes *string) (rev models.Review, err error) {
	defer func() { m.record(ctx, "reject", audit.EventReviewRejected, caller, reviewID, rev, err) }()

	rev, notes, err = m.prepare(ctx, caller, reviewID, notes)
	if err != nil {
		return rev, err
	}

	d := m.decision(caller, models.ReviewRejected, notes)
	if err = m.reviews.Transition(ctx, rev.ID, models.ReviewPending, d); err != nil {
		return rev, m.translate(ctx, rev, err)
	}
	apply(&rev, d)
	return rev, nil
}

// Delete removes a review in any status. Deleting an approved review
// recomputes the rating immediately.
func (m *Moderator) Delete(ctx context.Context, caller authz.Caller, reviewID primitive.ObjectID) (err error) {
	var rev models.Review
	defer func() { m.record(ctx, "delete", audit.EventReviewDeleted, caller, reviewID, rev, err) }()

	if err = authz.RequireAdmin(caller); err != nil {
		return err
	}
	if rev, err = m.load(ctx, reviewID); err != nil {
		return err
	}

	// The recompute follows the status of the document actually removed,
	// which may have been approved since it was loaded.
	err = m.tx.Run(ctx, func(ctx context.Context) error {
		deleted, err := m.reviews.Delete(ctx, rev.ID)
		if err != nil {
			return err
		}
		rev = deleted
		if rev.Status != models.ReviewApproved {
			return nil
		}
		_, err = m.recompute(ctx, rev.BusinessID)
		return err
	})
	if errors.Is(err, sentinel.ErrNotFound) {
		return apperr.NotFound("review not found")
	}
	return err
}

/* --------------------------------- reads ---------------------------------- */

// Get returns one review to an admin.
func (m *Moderator) Get(ctx context.Context, caller authz.Caller, reviewID primitive.ObjectID) (models.Review, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return models.Review{}, err
	}
	return m.load(ctx, reviewID)
}

// List pages through reviews for the back office.
func (m *Moderator) List(ctx context.Context, caller authz.Caller, f models.ReviewFilter, after primitive.ObjectID) (paging.Page[models.Review], error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return paging.Page[models.Review]{}, err
	}
	return m.list(ctx, f, after)
}

// ListPublished pages through a business's approved reviews. Open to anyone.
func (m *Moderator) ListPublished(ctx context.Context, businessID primitive.ObjectID, after primitive.ObjectID) (paging.Page[models.Review], error) {
	if _, err := m.business(ctx, businessID); err != nil {
		return paging.Page[models.Review]{}, err
	}
	return m.list(ctx, models.ReviewFilter{Status: models.ReviewApproved, BusinessID: &businessID}, after)
}

func (m *Moderator) list(ctx context.Context, f models.ReviewFilter, after primitive.ObjectID) (paging.Page[models.Review], error) {
	rows, err := m.reviews.List(ctx, f, after)
	if err != nil {
		return paging.Page[models.Review]{}, err
	}
	return paging.NewPage(rows, func(r models.Review) primitive.ObjectID { return r.ID }), nil
}

/* --------------------------------- system --------------------------------- */

// Resync recomputes one business's rating from its approved reviews. It is
// for background jobs; there is no caller and nothing is audited.
func (m *Moderator) Resync(ctx context.Context, businessID primitive.ObjectID) (models.RatingStats, error) {
	return m.recompute(ctx, businessID)
}

/* -------------------------------- helpers --------------------------------- */

// recompute derives the rating from every approved review and stores it.
func (m *Moderator) recompute(ctx context.Context, businessID primitive.ObjectID) (models.RatingStats, error) {
	stats, err := m.reviews.ApprovedStats(ctx, businessID)
	if err != nil {
		return models.RatingStats{}, err
	}
	if err := m.businesses.SetRating(ctx, businessID, stats); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Business removed out from under its reviews; nothing to update.
			m.log.Warn("rating recompute: business missing", zap.String("business_id", businessID.Hex()))
			return stats, nil
		}
		return models.RatingStats{}, err
	}
	return stats, nil
}

func (m *Moderator) prepare(ctx context.Context, caller authz.Caller, reviewID primitive.ObjectID, notes *string) (models.Review, *string, error) {
	if err := authz.RequireAdmin(caller); err != nil {
		return models.Review{}, nil, err
	}
	notes = htmlsanitize.OptionalPlainText(notes)
	if notes != nil {
		if err := inputval.Check(noteInput{Note: *notes}); err != nil {
			return models.Review{}, nil, err
		}
	}
	rev, err := m.load(ctx, reviewID)
	if err != nil {
		return models.Review{}, nil, err
	}
	if rev.Status != models.ReviewPending {
		return rev, nil, apperr.Newf(apperr.KindInvalidState, "review is %s, not pending", rev.Status)
	}
	return rev, notes, nil
}

func (m *Moderator) load(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	r, err := m.reviews.GetByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Review{}, apperr.NotFound("review not found")
	}
	return r, err
}

func (m *Moderator) business(ctx context.Context, id primitive.ObjectID) (models.Business, error) {
	b, err := m.businesses.GetByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.Business{}, apperr.NotFound("business not found")
	}
	return b, err
}

func (m *Moderator) decision(caller authz.Caller, status string, notes *string) models.Decision {
	return models.Decision{Status: status, Note: notes, By: caller.ID, At: m.now().UTC()}
}

func (m *Moderator) translate(ctx context.Context, rev models.Review, err error) error {
	if errors.Is(err, sentinel.ErrStateChanged) {
		current, gerr := m.load(ctx, rev.ID)
		if gerr != nil {
			return gerr
		}
		return apperr.InvalidState("review is " + current.Status)
	}
	return err
}

func apply(r *models.Review, d models.Decision) {
	by, at := d.By, d.At
	r.Status = d.Status
	r.ModeratedBy = &by
	r.ModeratedAt = &at
	if d.Note != nil {
		r.ModeratorNotes = d.Note
	}
	r.UpdatedAt = at
}

func (m *Moderator) record(ctx context.Context, action, event string, caller authz.Caller, reviewID primitive.ObjectID, rev models.Review, err error) {
	if rev.ID.IsZero() {
		rev.ID = reviewID
	}
	m.metrics.Decision(entity, action, err)
	m.audit.Review(ctx, event, caller.ID, rev, err)
	if err != nil && apperr.KindOf(err) == apperr.KindInternal {
		m.log.Error("review decision failed",
			zap.String("action", action),
			zap.String("review_id", reviewID.Hex()),
			zap.Error(err))
	}
}
