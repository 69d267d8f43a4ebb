package claimstore_test

import (
	"errors"
	"testing"
	"time"

	claimstore "github.com/dalemusser/directoryhub/internal/app/store/claims"
	"github.com/dalemusser/directoryhub/internal/app/system/indexes"
	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"github.com/dalemusser/directoryhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setup(t *testing.T) (*claimstore.Store, *testutil.Fixtures, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	return claimstore.New(db), testutil.NewFixtures(t, db), db
}

func TestStore_Create_Pending(t *testing.T) {
	store, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c, err := store.Create(ctx, models.OwnershipClaim{
		BusinessID: primitive.NewObjectID(),
		UserID:     primitive.NewObjectID(),
		Message:    "I own it",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if c.ID.IsZero() {
		t.Error("expected ID to be assigned")
	}
	if c.Status != models.ClaimPending {
		t.Errorf("expected pending, got %q", c.Status)
	}
	if c.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_DuplicatePending(t *testing.T) {
	store, _, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	biz, user := primitive.NewObjectID(), primitive.NewObjectID()
	if _, err := store.Create(ctx, models.OwnershipClaim{BusinessID: biz, UserID: user}); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.OwnershipClaim{BusinessID: biz, UserID: user})
	if !errors.Is(err, sentinel.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// A different user may claim the same business.
	if _, err := store.Create(ctx, models.OwnershipClaim{BusinessID: biz, UserID: primitive.NewObjectID()}); err != nil {
		t.Fatalf("second user Create failed: %v", err)
	}
}

func TestStore_Create_AfterRejectionAllowed(t *testing.T) {
	store, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	biz, user := primitive.NewObjectID(), primitive.NewObjectID()
	fx.CreateClaim(ctx, biz, user, models.ClaimRejected)

	if _, err := store.Create(ctx, models.OwnershipClaim{BusinessID: biz, UserID: user}); err != nil {
		t.Fatalf("Create after rejection failed: %v", err)
	}
}

func TestStore_Transition(t *testing.T) {
	store, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	claim := fx.CreateClaim(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.ClaimPending)
	admin := primitive.NewObjectID()
	note := "verified by phone"
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := store.Transition(ctx, claim.ID, models.ClaimPending, models.Decision{
		Status: models.ClaimApproved, Note: &note, By: admin, At: at,
	})
	if err != nil {
		t.Fatalf("Transition failed: %v", err)
	}

	got, err := store.GetByID(ctx, claim.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.ClaimApproved {
		t.Errorf("status = %q, want approved", got.Status)
	}
	if got.ReviewedBy == nil || *got.ReviewedBy != admin {
		t.Errorf("reviewed_by = %v, want %s", got.ReviewedBy, admin.Hex())
	}
	if got.ReviewedAt == nil || !got.ReviewedAt.Equal(at) {
		t.Errorf("reviewed_at = %v, want %v", got.ReviewedAt, at)
	}
	if got.AdminMessage == nil || *got.AdminMessage != note {
		t.Errorf("admin_message = %v, want %q", got.AdminMessage, note)
	}

	// Second transition from pending matches nothing.
	err = store.Transition(ctx, claim.ID, models.ClaimPending, models.Decision{Status: models.ClaimRejected, By: admin, At: at})
	if !errors.Is(err, sentinel.ErrStateChanged) {
		t.Fatalf("expected ErrStateChanged, got %v", err)
	}
}

func TestStore_Transition_SecondApprovalIsDuplicate(t *testing.T) {
	store, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	biz := primitive.NewObjectID()
	fx.CreateClaim(ctx, biz, primitive.NewObjectID(), models.ClaimApproved)
	other := fx.CreateClaim(ctx, biz, primitive.NewObjectID(), models.ClaimPending)

	err := store.Transition(ctx, other.ID, models.ClaimPending, models.Decision{
		Status: models.ClaimApproved, By: primitive.NewObjectID(), At: time.Now(),
	})
	if !errors.Is(err, sentinel.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestStore_HasPending_HasApproved(t *testing.T) {
	store, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	biz, user := primitive.NewObjectID(), primitive.NewObjectID()
	fx.CreateClaim(ctx, biz, user, models.ClaimPending)

	if ok, err := store.HasPending(ctx, biz, user); err != nil || !ok {
		t.Errorf("HasPending = %v, %v; want true", ok, err)
	}
	if ok, err := store.HasApproved(ctx, biz); err != nil || ok {
		t.Errorf("HasApproved = %v, %v; want false", ok, err)
	}
}

func TestStore_Delete(t *testing.T) {
	store, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	claim := fx.CreateClaim(ctx, primitive.NewObjectID(), primitive.NewObjectID(), models.ClaimRevoked)
	if err := store.Delete(ctx, claim.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.GetByID(ctx, claim.ID); !errors.Is(err, sentinel.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, claim.ID); !errors.Is(err, sentinel.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestStore_List_FilterAndPaging(t *testing.T) {
	store, fx, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	biz := primitive.NewObjectID()
	for i := 0; i < paging.PageSize+2; i++ {
		fx.CreateClaim(ctx, biz, primitive.NewObjectID(), models.ClaimPending)
	}
	fx.CreateClaim(ctx, biz, primitive.NewObjectID(), models.ClaimRejected)

	rows, err := store.List(ctx, models.ClaimFilter{Status: models.ClaimPending}, primitive.NilObjectID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	pg := paging.TrimPage(&rows)
	if !pg.HasNext || len(rows) != paging.PageSize {
		t.Fatalf("first page: len=%d hasNext=%v", len(rows), pg.HasNext)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].ID.Hex() < rows[i].ID.Hex() {
			t.Fatal("expected newest first")
		}
	}

	rest, err := store.List(ctx, models.ClaimFilter{Status: models.ClaimPending}, rows[len(rows)-1].ID)
	if err != nil {
		t.Fatalf("List page 2 failed: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("second page len = %d, want 2", len(rest))
	}
}
