package reviewmod_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/moderation/reviewmod"
	"github.com/dalemusser/directoryhub/internal/app/store/memstore"
	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/metrics"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

type env struct {
	db      *memstore.DB
	mod     *reviewmod.Moderator
	metrics *metrics.Metrics
	biz     models.Business
	admin   authz.Caller
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := memstore.New()
	db.Now = func() time.Time { return fixedNow }
	m := metrics.New(prometheus.NewRegistry())

	admin := db.PutUser(models.User{FullName: "Admin One", Role: models.RoleAdmin})
	return &env{
		db:      db,
		metrics: m,
		mod: reviewmod.New(reviewmod.Deps{
			Reviews:    db.Reviews(),
			Businesses: db.Businesses(),
			Tx:         db,
			Metrics:    m,
			Now:        func() time.Time { return fixedNow },
		}),
		biz:   db.PutBusiness(models.Business{Name: "Biz One"}),
		admin: authz.NewCaller(admin.ID, admin.FullName, "admin"),
	}
}

func (e *env) business(t *testing.T) models.Business {
	t.Helper()
	b, err := e.db.Businesses().GetByID(context.Background(), e.biz.ID)
	require.NoError(t, err)
	return b
}

func (e *env) submit(t *testing.T, rating int) models.Review {
	t.Helper()
	r, err := e.mod.Submit(context.Background(), authz.Caller{}, e.biz.ID, reviewmod.Submission{
		ReviewerName: "Visitor",
		Rating:       rating,
		Comment:      "Solid experience.",
	})
	require.NoError(t, err)
	return r
}

func TestApprove_RecomputesAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, rating := range []int{5, 3, 4} {
		r := e.submit(t, rating)
		assert.Equal(t, 0, e.business(t).RatingCount, "pending reviews must not count")

		approved, err := e.mod.Approve(ctx, e.admin, r.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewApproved, approved.Status)
		require.NotNil(t, approved.ModeratedBy)
		assert.Equal(t, e.admin.ID, *approved.ModeratedBy)
	}

	b := e.business(t)
	assert.InDelta(t, 4.0, b.RatingAggregate, 1e-9)
	assert.Equal(t, 3, b.RatingCount)
	assert.Equal(t, 3.0, testutil.ToFloat64(e.metrics.Decisions.WithLabelValues("review", "approve", metrics.OutcomeOK)))
}

func TestDelete_ApprovedRecomputes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var ids []primitive.ObjectID
	for _, rating := range []int{5, 3, 4} {
		r := e.submit(t, rating)
		_, err := e.mod.Approve(ctx, e.admin, r.ID, nil)
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	require.NoError(t, e.mod.Delete(ctx, e.admin, ids[0]))
	b := e.business(t)
	assert.InDelta(t, 3.5, b.RatingAggregate, 1e-9)
	assert.Equal(t, 2, b.RatingCount)

	require.NoError(t, e.mod.Delete(ctx, e.admin, ids[1]))
	require.NoError(t, e.mod.Delete(ctx, e.admin, ids[2]))
	b = e.business(t)
	assert.Equal(t, 0.0, b.RatingAggregate)
	assert.Equal(t, 0, b.RatingCount)

	err := e.mod.Delete(ctx, e.admin, ids[0])
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDelete_PendingLeavesAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	kept := e.submit(t, 2)
	_, err := e.mod.Approve(ctx, e.admin, kept.ID, nil)
	require.NoError(t, err)

	pending := e.submit(t, 5)
	require.NoError(t, e.mod.Delete(ctx, e.admin, pending.ID))

	b := e.business(t)
	assert.InDelta(t, 2.0, b.RatingAggregate, 1e-9)
	assert.Equal(t, 1, b.RatingCount)
}

func TestSubmit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	t.Run("rating out of range stores nothing", func(t *testing.T) {
		for _, rating := range []int{0, 6} {
			_, err := e.mod.Submit(ctx, authz.Caller{}, e.biz.ID, reviewmod.Submission{
				ReviewerName: "Visitor", Rating: rating, Comment: "x",
			})
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		}
		page, err := e.mod.List(ctx, e.admin, models.ReviewFilter{}, primitive.NilObjectID)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	t.Run("blank comment", func(t *testing.T) {
		_, err := e.mod.Submit(ctx, authz.Caller{}, e.biz.ID, reviewmod.Submission{
			ReviewerName: "Visitor", Rating: 4, Comment: "  <p></p> ",
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("comment too long", func(t *testing.T) {
		_, err := e.mod.Submit(ctx, authz.Caller{}, e.biz.ID, reviewmod.Submission{
			ReviewerName: "Visitor", Rating: 4, Comment: strings.Repeat("a", 5001),
		})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("unknown business", func(t *testing.T) {
		_, err := e.mod.Submit(ctx, authz.Caller{}, primitive.NewObjectID(), reviewmod.Submission{
			ReviewerName: "Visitor", Rating: 4, Comment: "Nice",
		})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	})

	t.Run("anonymous needs a name", func(t *testing.T) {
		_, err := e.mod.Submit(ctx, authz.Caller{}, e.biz.ID, reviewmod.Submission{Rating: 4, Comment: "Nice"})
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	})

	t.Run("signed-in caller is stamped", func(t *testing.T) {
		u := e.db.PutUser(models.User{FullName: "Rita Reviewer", Role: models.RoleMember})
		caller := authz.NewCaller(u.ID, u.FullName, "member")

		r, err := e.mod.Submit(ctx, caller, e.biz.ID, reviewmod.Submission{Rating: 4, Comment: "<b>Great</b> pie"})
		require.NoError(t, err)
		assert.Equal(t, models.ReviewPending, r.Status)
		assert.Equal(t, "Rita Reviewer", r.ReviewerName)
		assert.Equal(t, "Great pie", r.Comment)
		require.NotNil(t, r.UserID)
		assert.Equal(t, u.ID, *r.UserID)
	})
}

func TestDecisions_StatusGuards(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	approved := e.submit(t, 4)
	_, err := e.mod.Approve(ctx, e.admin, approved.ID, nil)
	require.NoError(t, err)

	_, err = e.mod.Approve(ctx, e.admin, approved.ID, nil)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "approve is not idempotent")

	_, err = e.mod.Reject(ctx, e.admin, approved.ID, nil)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err), "approved reviews are deleted, not rejected")

	notes := "Off topic"
	rejected := e.submit(t, 1)
	got, err := e.mod.Reject(ctx, e.admin, rejected.ID, &notes)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRejected, got.Status)
	require.NotNil(t, got.ModeratorNotes)
	assert.Equal(t, notes, *got.ModeratorNotes)

	_, err = e.mod.Approve(ctx, e.admin, rejected.ID, nil)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	assert.Equal(t, 1, e.business(t).RatingCount)

	_, err = e.mod.Approve(ctx, e.admin, primitive.NewObjectID(), nil)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestDecisions_RequireAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.submit(t, 3)

	u := e.db.PutUser(models.User{FullName: "Una Member", Role: models.RoleMember})
	member := authz.NewCaller(u.ID, u.FullName, "member")

	for _, caller := range []authz.Caller{{}, member} {
		_, err := e.mod.Approve(ctx, caller, r.ID, nil)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		_, err = e.mod.Reject(ctx, caller, r.ID, nil)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		err = e.mod.Delete(ctx, caller, r.ID)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
		_, err = e.mod.List(ctx, caller, models.ReviewFilter{}, primitive.NilObjectID)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
	}

	got, err := e.mod.Get(ctx, e.admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, got.Status)
	assert.Equal(t, 2.0, testutil.ToFloat64(e.metrics.Decisions.WithLabelValues("review", "approve", metrics.OutcomeFailed)))
}

func TestListPublished(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := e.submit(t, 5)
	_, err := e.mod.Approve(ctx, e.admin, a.ID, nil)
	require.NoError(t, err)
	e.submit(t, 2)

	page, err := e.mod.ListPublished(ctx, e.biz.ID, primitive.NilObjectID)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, a.ID, page.Items[0].ID)
	assert.False(t, page.HasNext)

	_, err = e.mod.ListPublished(ctx, primitive.NewObjectID(), primitive.NilObjectID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestResync_RepairsStaleAggregate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r := e.submit(t, 2)
	_, err := e.mod.Approve(ctx, e.admin, r.ID, nil)
	require.NoError(t, err)

	require.NoError(t, e.db.Businesses().SetRating(ctx, e.biz.ID, models.RatingStats{Average: 5, Count: 9}))

	stats, err := e.mod.Resync(ctx, e.biz.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RatingStats{Average: 2, Count: 1}, stats)
	assert.Equal(t, 1, e.business(t).RatingCount)
}

// approveOnLoad approves the review through another moderator right after the
// first GetByID, as a second admin acting between load and delete would.
type approveOnLoad struct {
	*memstore.Reviews
	other *reviewmod.Moderator
	admin authz.Caller
	fired bool
}

func (s *approveOnLoad) GetByID(ctx context.Context, id primitive.ObjectID) (models.Review, error) {
	r, err := s.Reviews.GetByID(ctx, id)
	if err == nil && !s.fired {
		s.fired = true
		if _, aerr := s.other.Approve(ctx, s.admin, id, nil); aerr != nil {
			return r, aerr
		}
	}
	return r, err
}

func TestDelete_ApprovedAfterLoadRecomputes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	kept := e.submit(t, 5)
	_, err := e.mod.Approve(ctx, e.admin, kept.ID, nil)
	require.NoError(t, err)
	late := e.submit(t, 1)

	other := e.db.PutUser(models.User{FullName: "Admin Two", Role: models.RoleAdmin})
	racing := &approveOnLoad{
		Reviews: e.db.Reviews(),
		other:   e.mod,
		admin:   authz.NewCaller(other.ID, other.FullName, "admin"),
	}
	mod := reviewmod.New(reviewmod.Deps{
		Reviews:    racing,
		Businesses: e.db.Businesses(),
		Tx:         e.db,
		Now:        func() time.Time { return fixedNow },
	})

	require.NoError(t, mod.Delete(ctx, e.admin, late.ID))
	require.True(t, racing.fired)

	b := e.business(t)
	assert.Equal(t, 5.0, b.RatingAggregate)
	assert.Equal(t, 1, b.RatingCount)
}
