// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

type (
	// Options configures the Mongo store.
	Options struct {
		Client   *mongodriver.Client
		Database string
		Timeout  time.Duration
		// Indexes lists per-collection indexes created on startup.
		Indexes map[string][]mongodriver.IndexModel
	}

	// Store is a MongoDB-backed store.Store.
	Store struct {
		mongo   *mongodriver.Client
		db      *mongodriver.Database
		timeout time.Duration
	}
)

const defaultTimeout = 5 * time.Second

// Untyped config fields hold JSON-like values; decode embedded documents
// into maps rather than bson.D.
var bsonOptions = &options.BSONOptions{DefaultDocumentM: true}

var _ store.Store = (*Store)(nil)

// New returns a Store and ensures the configured indexes exist.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	s := &Store{
		mongo:   opts.Client,
		db:      opts.Client.Database(opts.Database, options.Database().SetBSONOptions(bsonOptions)),
		timeout: timeout,
	}
	for coll, models := range opts.Indexes {
		if len(models) == 0 {
			continue
		}
		ictx, cancel := s.withTimeout(ctx)
		_, err := s.db.Collection(coll).Indexes().CreateMany(ictx, models)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return s, nil
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.mongo.Ping(ctx, readpref.Primary())
}

func (s *Store) FindOne(ctx context.Context, collection string, filter bson.M, out any) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.Collection(collection).FindOne(ctx, filter).Decode(out); err != nil {
		return errx.WrapMongo(err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, collection string, filter bson.M, opts store.FindOptions, out any) (err error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	fo := options.Find()
	if opts.SortBy != "" {
		dir := 1
		if opts.Desc {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: opts.SortBy, Value: dir}})
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	cur, err := s.db.Collection(collection).Find(ctx, filter, fo)
	if err != nil {
		return errx.WrapMongo(err)
	}
	defer func() {
		if cerr := cur.Close(ctx); err == nil && cerr != nil {
			err = errx.WrapMongo(cerr)
		}
	}()
	if err := cur.All(ctx, out); err != nil {
		return errx.WrapMongo(err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		logx.Error().Err(err).Str("collection", collection).Msg("failed to insert document")
		return "", errx.WrapMongo(err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprint(id), nil
	}
}

func (s *Store) Update(ctx context.Context, collection string, filter bson.M, set bson.M, upsert bool) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.Collection(collection).UpdateOne(ctx, filter, bson.M{"$set": set}, options.Update().SetUpsert(upsert))
	if err != nil {
		logx.Error().Err(err).Str("collection", collection).Msg("failed to update document")
		return errx.WrapMongo(err)
	}
	if !upsert && res.MatchedCount == 0 {
		return errx.WrapMongo(errx.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection string, filter bson.M) (bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	res, err := s.db.Collection(collection).DeleteOne(ctx, filter)
	if err != nil {
		return false, errx.WrapMongo(err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
