// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows in a moderation queue page.
const PageSize = 50

// LimitPlusOne returns PageSize+1 for look-ahead pagination
// (fetch one extra document to detect hasNext).
func LimitPlusOne() int64 { return int64(PageSize + 1) }

// ParseAfter reads the "after" cursor (the last id of the previous page).
// Missing or malformed values mean "first page".
func ParseAfter(r *http.Request) primitive.ObjectID {
	s := strings.TrimSpace(query.Get(r, "after"))
	if s == "" {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}

// NewestFirst configures a Find for _id-descending keyset pagination and
// narrows filter to documents older than after. ObjectIDs grow with insertion
// time, so this is also created_at order.
func NewestFirst(filter bson.M, after primitive.ObjectID) (bson.M, *options.FindOptions) {
	if filter == nil {
		filter = bson.M{}
	}
	if !after.IsZero() {
		filter["_id"] = bson.M{"$lt": after}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(LimitPlusOne())
	return filter, opts
}

// Result holds the output of TrimPage.
type Result struct {
	HasNext bool
}

// TrimPage trims a slice fetched with LimitPlusOne down to PageSize and
// reports whether another page exists.
func TrimPage[T any](rows *[]T) Result {
	if len(*rows) > PageSize {
		*rows = (*rows)[:PageSize]
		return Result{HasNext: true}
	}
	return Result{}
}

// Page is one page of a keyset-paginated listing.
type Page[T any] struct {
	Items   []T    `json:"items"`
	HasNext bool   `json:"has_next"`
	Next    string `json:"next,omitempty"` // pass as ?after= for the following page
}

// NewPage trims rows fetched with LimitPlusOne and sets the next cursor.
func NewPage[T any](rows []T, idOf func(T) primitive.ObjectID) Page[T] {
	res := TrimPage(&rows)
	p := Page[T]{Items: rows, HasNext: res.HasNext}
	if p.Items == nil {
		p.Items = []T{}
	}
	if res.HasNext && len(rows) > 0 {
		p.Next = idOf(rows[len(rows)-1]).Hex()
	}
	return p
}
