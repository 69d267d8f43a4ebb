// internal/app/features/auditlog/list.go
package auditlog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/store/audit"
	"github.com/dalemusser/directoryhub/internal/app/system/apperr"
	"github.com/dalemusser/directoryhub/internal/app/system/authz"
	"github.com/dalemusser/directoryhub/internal/app/system/respond"
	"github.com/dalemusser/directoryhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const pageSize = 50

const dateLayout = "2006-01-02"

// listItem is one audit event in the JSON response.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	EventType     string            `json:"event_type"`
	ActorID       string            `json:"actor_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	SubjectID     string            `json:"subject_id,omitempty"`
	BusinessID    string            `json:"business_id,omitempty"`
	BatchID       string            `json:"batch_id,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int64      `json:"total"`
}

// List handles GET /admin/audit?event_type=&batch_id=&subject_id=&business_id=&start_date=&end_date=&page=.
// Dates are YYYY-MM-DD in UTC; end_date covers the whole day.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if err := authz.RequireAdmin(authz.FromRequest(r)); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	filter, page, err := parseFilter(r)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Events.Query(ctx, filter)
	if err != nil {
		respond.Error(w, h.Log, fmt.Errorf("query audit events: %w", err))
		return
	}
	total, err := h.Events.CountByFilter(ctx, filter)
	if err != nil {
		respond.Error(w, h.Log, fmt.Errorf("count audit events: %w", err))
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, listItem{
			ID:            e.ID.Hex(),
			Timestamp:     e.Timestamp,
			EventType:     e.EventType,
			ActorID:       hex(e.ActorID),
			UserID:        hex(e.UserID),
			SubjectID:     hex(e.SubjectID),
			BusinessID:    hex(e.BusinessID),
			BatchID:       e.BatchID,
			Success:       e.Success,
			FailureReason: e.FailureReason,
			Details:       e.Details,
		})
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	respond.JSON(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}

func parseFilter(r *http.Request) (audit.QueryFilter, int, error) {
	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}

	f := audit.QueryFilter{
		Category:  audit.CategoryModeration,
		EventType: strings.TrimSpace(query.Get(r, "event_type")),
		BatchID:   strings.TrimSpace(query.Get(r, "batch_id")),
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	var err error
	if f.SubjectID, err = idParam(r, "subject_id"); err != nil {
		return f, 0, err
	}
	if f.BusinessID, err = idParam(r, "business_id"); err != nil {
		return f, 0, err
	}

	if s := strings.TrimSpace(query.Get(r, "start_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, 0, apperr.Validation("start_date must be YYYY-MM-DD.")
		}
		f.StartTime = &t
	}
	if s := strings.TrimSpace(query.Get(r, "end_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return f, 0, apperr.Validation("end_date must be YYYY-MM-DD.")
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &endOfDay
	}
	return f, page, nil
}

func idParam(r *http.Request, key string) (*primitive.ObjectID, error) {
	raw := strings.TrimSpace(query.Get(r, key))
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, apperr.Validation(key + " is not a valid id.")
	}
	return &id, nil
}

func hex(id *primitive.ObjectID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}
