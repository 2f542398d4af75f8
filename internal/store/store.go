// Package store defines the typed document store every runtime collection is
// persisted in. Documents are partitioned by bot and soft-deleted through a
// boolean status field; both conventions are applied by callers through filters.
package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

type (
	// Store is the persistence contract shared by the Mongo implementation and
	// the in-memory implementation used in tests and local runs.
	Store interface {
		// FindOne decodes the first document matching filter into out. It
		// returns an error wrapping errx.ErrNotFound when nothing matches.
		FindOne(ctx context.Context, collection string, filter bson.M, out any) error
		// Find decodes every matching document into out, which must be a
		// pointer to a slice.
		Find(ctx context.Context, collection string, filter bson.M, opts FindOptions, out any) error
		// Insert stores doc and returns its identifier.
		Insert(ctx context.Context, collection string, doc any) (string, error)
		// Update applies set ($set semantics) to the first matching document.
		// When upsert is true and nothing matches, a document is created from
		// the equality fields of filter plus set.
		Update(ctx context.Context, collection string, filter bson.M, set bson.M, upsert bool) error
		// Delete removes the first matching document and reports whether one existed.
		Delete(ctx context.Context, collection string, filter bson.M) (bool, error)
	}

	// FindOptions controls ordering and size of Find results.
	FindOptions struct {
		SortBy string
		Desc   bool
		Limit  int64
	}
)

// Active returns the standard filter for live documents of a bot.
func Active(bot string) bson.M {
	return bson.M{"bot": bot, "status": true}
}
