// Package memstore is an in-memory Entity Store with the same contract as the
// Mongo stores: sentinel errors, conditional transitions, and the two
// claim uniqueness rules. The moderation packages test against it.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/system/paging"
	"github.com/dalemusser/directoryhub/internal/app/system/sentinel"
	"github.com/dalemusser/directoryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DB holds every collection behind one lock.
type DB struct {
	mu         sync.Mutex
	businesses map[primitive.ObjectID]models.Business
	users      map[primitive.ObjectID]models.User
	claims     map[primitive.ObjectID]models.OwnershipClaim
	reviews    map[primitive.ObjectID]models.Review

	Now func() time.Time
}

func New() *DB {
	return &DB{
		businesses: map[primitive.ObjectID]models.Business{},
		users:      map[primitive.ObjectID]models.User{},
		claims:     map[primitive.ObjectID]models.OwnershipClaim{},
		reviews:    map[primitive.ObjectID]models.Review{},
		Now:        time.Now,
	}
}

func (db *DB) Businesses() *Businesses { return &Businesses{db} }
func (db *DB) Users() *Users           { return &Users{db} }
func (db *DB) Claims() *Claims         { return &Claims{db} }
func (db *DB) Reviews() *Reviews       { return &Reviews{db} }

// Run calls fn directly; each memstore call is already atomic.
func (db *DB) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// PutBusiness inserts or replaces b, assigning an id if missing.
func (db *DB) PutBusiness(b models.Business) models.Business {
	db.mu.Lock()
	defer db.mu.Unlock()
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	db.businesses[b.ID] = b
	return b
}

// PutUser inserts or replaces u, assigning an id if missing.
func (db *DB) PutUser(u models.User) models.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	db.users[u.ID] = u
	return u
}

/* ---------------------------------- users --------------------------------- */

type Users struct{ db *DB }

func (s *Users) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return models.User{}, sentinel.ErrNotFound
	}
	return u, nil
}

/* ------------------------------- businesses ------------------------------- */

type Businesses struct{ db *DB }

func (s *Businesses) GetByID(_ context.Context, id primitive.ObjectID) (models.Business, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.businesses[id]
	if !ok {
		return models.Business{}, sentinel.ErrNotFound
	}
	return b, nil
}

func (s *Businesses) SetOwner(_ context.Context, id, userID primitive.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.businesses[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	owner := userID
	b.OwnerID = &owner
	b.UpdatedAt = s.db.Now().UTC()
	s.db.businesses[id] = b
	return nil
}

func (s *Businesses) ClearOwnerIf(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.businesses[id]
	if !ok || b.OwnerID == nil || *b.OwnerID != userID {
		return false, nil
	}
	b.OwnerID = nil
	b.UpdatedAt = s.db.Now().UTC()
	s.db.businesses[id] = b
	return true, nil
}

func (s *Businesses) SetRating(_ context.Context, id primitive.ObjectID, stats models.RatingStats) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.businesses[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	b.RatingAggregate = stats.Average
	b.RatingCount = stats.Count
	b.UpdatedAt = s.db.Now().UTC()
	s.db.businesses[id] = b
	return nil
}

func (s *Businesses) IDsAfter(_ context.Context, after primitive.ObjectID, limit int64) ([]primitive.ObjectID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	ids := make([]primitive.ObjectID, 0, len(s.db.businesses))
	for id := range s.db.businesses {
		if after.IsZero() || id.Hex() > after.Hex() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Hex() < ids[j].Hex() })
	if int64(len(ids)) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

/* --------------------------------- claims --------------------------------- */

type Claims struct{ db *DB }

// violates reports whether c would break a claim uniqueness rule, ignoring
// the record with c's own id.
func (s *Claims) violates(c models.OwnershipClaim) bool {
	for id, other := range s.db.claims {
		if id == c.ID || other.BusinessID != c.BusinessID || other.Status != c.Status {
			continue
		}
		switch c.Status {
		case models.ClaimPending:
			if other.UserID == c.UserID {
				return true
			}
		case models.ClaimApproved:
			return true
		}
	}
	return false
}

func (s *Claims) Create(_ context.Context, c models.OwnershipClaim) (models.OwnershipClaim, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c.ID = primitive.NewObjectID()
	if c.Status == "" {
		c.Status = models.ClaimPending
	}
	now := s.db.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if s.violates(c) {
		return models.OwnershipClaim{}, sentinel.ErrDuplicate
	}
	s.db.claims[c.ID] = c
	return c, nil
}

func (s *Claims) GetByID(_ context.Context, id primitive.ObjectID) (models.OwnershipClaim, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.claims[id]
	if !ok {
		return models.OwnershipClaim{}, sentinel.ErrNotFound
	}
	return c, nil
}

func (s *Claims) HasPending(_ context.Context, businessID, userID primitive.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.claims {
		if c.BusinessID == businessID && c.UserID == userID && c.Status == models.ClaimPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *Claims) HasApproved(_ context.Context, businessID primitive.ObjectID) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, c := range s.db.claims {
		if c.BusinessID == businessID && c.Status == models.ClaimApproved {
			return true, nil
		}
	}
	return false, nil
}

func (s *Claims) Transition(_ context.Context, id primitive.ObjectID, from string, d models.Decision) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	c, ok := s.db.claims[id]
	if !ok || c.Status != from {
		return sentinel.ErrStateChanged
	}
	c.Status = d.Status
	if s.violates(c) {
		return sentinel.ErrDuplicate
	}
	by, at := d.By, d.At.UTC()
	c.ReviewedBy = &by
	c.ReviewedAt = &at
	if d.Note != nil {
		note := *d.Note
		c.AdminMessage = &note
	}
	c.UpdatedAt = s.db.Now().UTC()
	s.db.claims[id] = c
	return nil
}

func (s *Claims) Delete(_ context.Context, id primitive.ObjectID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.claims[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.db.claims, id)
	return nil
}

func (s *Claims) List(_ context.Context, f models.ClaimFilter, after primitive.ObjectID) ([]models.OwnershipClaim, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.OwnershipClaim
	for _, c := range s.db.claims {
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.BusinessID != nil && c.BusinessID != *f.BusinessID {
			continue
		}
		if f.UserID != nil && c.UserID != *f.UserID {
			continue
		}
		out = append(out, c)
	}
	return newestFirst(out, after, func(c models.OwnershipClaim) primitive.ObjectID { return c.ID }), nil
}

/* --------------------------------- reviews -------------------------------- */

type Reviews struct{ db *DB }

func (s *Reviews) Create(_ context.Context, r models.Review) (models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r.ID = primitive.NewObjectID()
	if r.Status == "" {
		r.Status = models.ReviewPending
	}
	now := s.db.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	s.db.reviews[r.ID] = r
	return r, nil
}

func (s *Reviews) GetByID(_ context.Context, id primitive.ObjectID) (models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok {
		return models.Review{}, sentinel.ErrNotFound
	}
	return r, nil
}

func (s *Reviews) Transition(_ context.Context, id primitive.ObjectID, from string, d models.Decision) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok || r.Status != from {
		return sentinel.ErrStateChanged
	}
	by, at := d.By, d.At.UTC()
	r.Status = d.Status
	r.ModeratedBy = &by
	r.ModeratedAt = &at
	if d.Note != nil {
		note := *d.Note
		r.ModeratorNotes = &note
	}
	r.UpdatedAt = s.db.Now().UTC()
	s.db.reviews[id] = r
	return nil
}

func (s *Reviews) Delete(_ context.Context, id primitive.ObjectID) (models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reviews[id]
	if !ok {
		return models.Review{}, sentinel.ErrNotFound
	}
	delete(s.db.reviews, id)
	return r, nil
}

func (s *Reviews) ApprovedStats(_ context.Context, businessID primitive.ObjectID) (models.RatingStats, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var sum, n int
	for _, r := range s.db.reviews {
		if r.BusinessID == businessID && r.Status == models.ReviewApproved {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return models.RatingStats{}, nil
	}
	return models.RatingStats{Average: float64(sum) / float64(n), Count: n}, nil
}

func (s *Reviews) List(_ context.Context, f models.ReviewFilter, after primitive.ObjectID) ([]models.Review, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []models.Review
	for _, r := range s.db.reviews {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.BusinessID != nil && r.BusinessID != *f.BusinessID {
			continue
		}
		out = append(out, r)
	}
	return newestFirst(out, after, func(r models.Review) primitive.ObjectID { return r.ID }), nil
}

// newestFirst mirrors paging.NewestFirst: _id descending, strictly before
// after, at most LimitPlusOne rows.
func newestFirst[T any](rows []T, after primitive.ObjectID, idOf func(T) primitive.ObjectID) []T {
	sort.Slice(rows, func(i, j int) bool {
		return idOf(rows[i]).Hex() > idOf(rows[j]).Hex()
	})
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if !after.IsZero() && idOf(r).Hex() >= after.Hex() {
			continue
		}
		out = append(out, r)
		if int64(len(out)) == paging.LimitPlusOne() {
			break
		}
	}
	return out
}
