// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Index names the moderation core depends on. The stores map duplicate-key
// errors on these to Conflict.
const (
	ClaimsPendingPerUser = "uniq_claims_pending_business_user"
	ClaimsApprovedPerBiz = "uniq_claims_approved_business"
	BusinessesSlug       = "uniq_businesses_slug"
	UsersEmail           = "uniq_users_email"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	sets := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{"businesses", ensureBusinesses},
		{"users", ensureUsers},
		{"ownership_claims", ensureClaims},
		{"reviews", ensureReviews},
		{"audit_events", ensureAuditEvents},
	}
	for _, s := range sets {
		if err := s.fn(ctx, db); err != nil {
			problems = append(problems, s.name+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name    string   `bson:"name"`
	Key     bson.D   `bson:"key"`
	Unique  *bool    `bson:"unique,omitempty"`
	Partial bson.Raw `bson:"partialFilterExpression,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// partialSig renders a partial filter so desired and existing indexes can be
// compared. Empty means "no partial filter".
func partialSig(v interface{}) string {
	if v == nil {
		return ""
	}
	raw, err := bson.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return bson.Raw(raw).String()
}

func boolVal(b *bool) bool { return b != nil && *b }

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// desired is the comparable shape of one IndexModel.
type desired struct {
	name    string
	sig     string
	unique  bool
	partial string
}

func describe(m mongo.IndexModel) desired {
	d := desired{sig: keySig(m.Keys.(bson.D))}
	if m.Options != nil {
		if m.Options.Name != nil {
			d.name = *m.Options.Name
		}
		d.unique = boolVal(m.Options.Unique)
		if m.Options.PartialFilterExpression != nil {
			d.partial = partialSig(m.Options.PartialFilterExpression)
		}
	}
	return d
}

func listExisting(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	out := map[string]existingIndex{} // name -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		// Collection may not exist yet.
		return out
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[idx.Name] = idx
	}
	return out
}

// findMatch returns an existing index with the same keys and partial filter.
// Two partial indexes may share a key pattern, so the filter is part of the
// identity.
func findMatch(existing map[string]existingIndex, d desired) (existingIndex, bool) {
	if ex, ok := existing[d.name]; ok && keySig(ex.Key) == d.sig {
		return ex, true
	}
	for _, ex := range existing {
		if keySig(ex.Key) != d.sig {
			continue
		}
		var exPartial string
		if len(ex.Partial) > 0 {
			exPartial = ex.Partial.String()
		}
		if exPartial == d.partial {
			return ex, true
		}
	}
	return existingIndex{}, false
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	createErr := func(d desired, err error) {
		if isDuplicateKeyErr(err) && d.unique {
			errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), d.name))
			return
		}
		errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), d.name, err))
	}

	for _, m := range models {
		d := describe(m)
		start := time.Now()
		zap.L().Info("ensuring index",
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("keys", d.sig),
			zap.Bool("unique", d.unique))

		ex, ok := findMatch(listExisting(ctx, coll), d)
		if ok {
			var exPartial string
			if len(ex.Partial) > 0 {
				exPartial = ex.Partial.String()
			}
			if boolVal(ex.Unique) == d.unique && exPartial == d.partial && (d.name == "" || ex.Name == d.name) {
				zap.L().Info("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.String("took", time.Since(start).String()))
				continue
			}

			// Name or options differ: drop & recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				zap.L().Warn("drop existing index failed",
					zap.String("collection", coll.Name()),
					zap.String("name", ex.Name),
					zap.Error(err))
				errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), d.name, err))
				continue
			}
			if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
				createErr(d, err)
				continue
			}
			zap.L().Info("index dropped and recreated",
				zap.String("collection", coll.Name()),
				zap.String("name", d.name),
				zap.String("from", ex.Name),
				zap.String("took", time.Since(start).String()))
			continue
		}

		created, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil {
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", d.name),
				zap.String("keys", d.sig),
				zap.Error(err))
			createErr(d, err)
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", d.name),
			zap.String("created_name", created),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureBusinesses(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("businesses"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(BusinessesSlug),
		},
		// "businesses owned by user"
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_businesses_owner"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_businesses_status_name"),
		},
	})
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("users"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(UsersEmail),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}, {Key: "full_name_ci", Value: 1}},
			Options: options.Index().SetName("idx_users_role_status_name"),
		},
	})
}

func ensureClaims(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("ownership_claims"), []mongo.IndexModel{
		// One open claim per (business, user).
		{
			Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(ClaimsPendingPerUser).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "pending"}}),
		},
		// One approved claim per business.
		{
			Keys: bson.D{{Key: "business_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName(ClaimsApprovedPerBiz).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "approved"}}),
		},
		// Back-office queue, newest first.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_claims_status_id"),
		},
		// "My claims".
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_claims_user_id"),
		},
	})
}

func ensureReviews(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("reviews"), []mongo.IndexModel{
		// Public list and rating aggregate.
		{
			Keys:    bson.D{{Key: "business_id", Value: 1}, {Key: "status", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_reviews_business_status_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_reviews_status_id"),
		},
	})
}

func ensureAuditEvents(ctx context.Context, db *mongo.Database) error {
	return ensureIndexSet(ctx, db.Collection("audit_events"), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_time"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "event_type", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_category_type_time"),
		},
	})
}
