package auditlog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/features/auditlog"
	"github.com/dalemusser/directoryhub/internal/app/store/audit"
	"github.com/dalemusser/directoryhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeEvents struct {
	events []audit.Event
	total  int64
	err    error
	got    audit.QueryFilter
}

func (f *fakeEvents) Query(_ context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	f.got = filter
	return f.events, f.err
}

func (f *fakeEvents) CountByFilter(_ context.Context, _ audit.QueryFilter) (int64, error) {
	return f.total, f.err
}

func newRouter(events auditlog.EventQuerier) http.Handler {
	h := auditlog.NewHandler(events, zap.NewNop())
	r := chi.NewRouter()
	r.Route("/admin", h.MountAdminRoutes)
	return r
}

func TestList_ReturnsEvents(t *testing.T) {
	claimID := primitive.NewObjectID()
	actorID := testutil.AdminUser().ObjectID()
	events := &fakeEvents{
		events: []audit.Event{{
			ID:        primitive.NewObjectID(),
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Category:  audit.CategoryModeration,
			EventType: audit.EventClaimApproved,
			ActorID:   &actorID,
			SubjectID: &claimID,
			BatchID:   "b-1",
			Success:   true,
		}},
		total: 51,
	}

	req := testutil.NewAuthenticatedRequest("GET", "/admin/audit?event_type=claim_approved&batch_id=b-1&page=2", "", testutil.AdminUser())
	rec := testutil.NewRecorder()
	newRouter(events).ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	var body struct {
		Items []struct {
			EventType string `json:"event_type"`
			ActorID   string `json:"actor_id"`
			SubjectID string `json:"subject_id"`
			BatchID   string `json:"batch_id"`
			UserID    string `json:"user_id"`
		} `json:"items"`
		Page       int   `json:"page"`
		TotalPages int   `json:"total_pages"`
		Total      int64 `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(body.Items))
	}
	item := body.Items[0]
	if item.EventType != audit.EventClaimApproved || item.SubjectID != claimID.Hex() || item.ActorID != actorID.Hex() || item.BatchID != "b-1" {
		t.Errorf("unexpected item %+v", item)
	}
	if item.UserID != "" {
		t.Errorf("user_id = %q, want omitted", item.UserID)
	}
	if body.Page != 2 || body.TotalPages != 2 || body.Total != 51 {
		t.Errorf("paging = page %d of %d (total %d), want 2 of 2 (51)", body.Page, body.TotalPages, body.Total)
	}

	if events.got.EventType != audit.EventClaimApproved || events.got.BatchID != "b-1" {
		t.Errorf("filter = %+v", events.got)
	}
	if events.got.Category != audit.CategoryModeration {
		t.Errorf("category = %q, want moderation", events.got.Category)
	}
	if events.got.Offset != 50 || events.got.Limit != 50 {
		t.Errorf("offset/limit = %d/%d, want 50/50", events.got.Offset, events.got.Limit)
	}
}

func TestList_DateRangeCoversEndDay(t *testing.T) {
	events := &fakeEvents{}
	req := testutil.NewAuthenticatedRequest("GET", "/admin/audit?start_date=2026-03-01&end_date=2026-03-02", "", testutil.AdminUser())
	rec := testutil.NewRecorder()
	newRouter(events).ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusOK)

	if events.got.StartTime == nil || !events.got.StartTime.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartTime = %v", events.got.StartTime)
	}
	if events.got.EndTime == nil || !events.got.EndTime.After(time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("EndTime = %v, want end of 2026-03-02", events.got.EndTime)
	}
	rec.AssertContains(t, `"items":[]`)
}

func TestList_BadParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"bad subject id", "subject_id=nope"},
		{"bad business id", "business_id=123"},
		{"bad start date", "start_date=03/01/2026"},
		{"bad end date", "end_date=tomorrow"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewAuthenticatedRequest("GET", "/admin/audit?"+tt.query, "", testutil.AdminUser())
			rec := testutil.NewRecorder()
			newRouter(&fakeEvents{}).ServeHTTP(rec, req)
			rec.AssertStatus(t, http.StatusBadRequest)
			rec.AssertContains(t, `"validation"`)
		})
	}
}

func TestList_RequiresAdmin(t *testing.T) {
	req := testutil.NewAuthenticatedRequest("GET", "/admin/audit", "", testutil.MemberUser())
	rec := testutil.NewRecorder()
	newRouter(&fakeEvents{}).ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestList_StoreFailureIsInternal(t *testing.T) {
	req := testutil.NewAuthenticatedRequest("GET", "/admin/audit", "", testutil.AdminUser())
	rec := testutil.NewRecorder()
	newRouter(&fakeEvents{err: errors.New("connection reset")}).ServeHTTP(rec, req)
	rec.AssertStatus(t, http.StatusInternalServerError)
	rec.AssertContains(t, "internal error")
	if body := rec.Body.String(); strings.Contains(body, "connection reset") {
		t.Errorf("response leaks driver error: %s", body)
	}
}
