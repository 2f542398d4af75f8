// Package repo loads action records and per-type action configs from the
// document store, fronted by a short TTL read cache.
package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// Configs is the read side of bot configuration. Configs are read-only to
// the runtime and only live (status=true) documents are visible.
type Configs struct {
	store store.Store
	cache Cache
}

func NewConfigs(s store.Store, c Cache) *Configs {
	if c == nil {
		c = NewMemoryCache(0)
	}
	return &Configs{store: s, cache: c}
}

// Store exposes the underlying document store.
func (r *Configs) Store() store.Store {
	return r.store
}

// Record returns the ActionRecord for name.
func (r *Configs) Record(ctx context.Context, bot, name string) (*model.ActionRecord, error) {
	var rec model.ActionRecord
	if err := r.find(ctx, model.CollectionActions, bot, name, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Load decodes the config of an action of the given type into out.
func (r *Configs) Load(ctx context.Context, typ model.ActionType, bot, name string, out any) error {
	coll, ok := model.ConfigCollection[typ]
	if !ok {
		return errx.Ef(errx.KindUnsupportedActionType, "no config collection for action type %q", typ)
	}
	return r.find(ctx, coll, bot, name, out)
}

// LoadFrom decodes a named config from an arbitrary collection.
func (r *Configs) LoadFrom(ctx context.Context, collection, bot, name string, out any) error {
	return r.find(ctx, collection, bot, name, out)
}

func (r *Configs) find(ctx context.Context, collection, bot, name string, out any) error {
	key := fmt.Sprintf("%s:%s:%s", collection, bot, name)
	if hit, err := r.cache.Get(ctx, key, out); err == nil && hit {
		return nil
	}

	filter := store.Active(bot)
	filter["name"] = name
	if err := r.store.FindOne(ctx, collection, filter, out); err != nil {
		if errors.Is(err, errx.ErrNotFound) {
			return errx.E(errx.KindConfigNotFound, fmt.Sprintf("no config found for action %q in %s", name, collection), err)
		}
		return err
	}
	if err := r.cache.Set(ctx, key, out); err != nil {
		logx.Warn().Err(err).Str("key", key).Msg("config cache write failed")
	}
	return nil
}

// Invalidate drops a cached config.
func (r *Configs) Invalidate(ctx context.Context, collection, bot, name string) error {
	return r.cache.Delete(ctx, fmt.Sprintf("%s:%s:%s", collection, bot, name))
}

// FindAll returns every live document of collection for bot matching extra.
func (r *Configs) FindAll(ctx context.Context, collection, bot string, extra bson.M, out any) error {
	filter := store.Active(bot)
	for k, v := range extra {
		filter[k] = v
	}
	return r.store.Find(ctx, collection, filter, store.FindOptions{}, out)
}
