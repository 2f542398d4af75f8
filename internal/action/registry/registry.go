// Package registry maps action type tags to implementations and resolves
// an action name of a bot to a ready-to-run instance.
package registry

import (
	"context"
	"strings"
	"sync"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

type (
	// Action is one executable instance bound to a bot and an action name.
	// Execute always returns the slot delta; err is non-nil when the
	// invocation ended in FAILURE.
	Action interface {
		Name() string
		Type() model.ActionType
		Execute(ctx context.Context, d model.Dispatcher, t *tracker.Tracker, domain map[string]any) (map[string]any, error)
	}

	// Factory instantiates an implementation for (bot, name).
	Factory func(bot, name string) Action

	// RecordFinder looks up the ActionRecord of a name.
	RecordFinder interface {
		Record(ctx context.Context, bot, name string) (*model.ActionRecord, error)
	}

	// Registry is the process-wide table of implementations.
	Registry struct {
		mu        sync.RWMutex
		factories map[model.ActionType]Factory
		records   RecordFinder
	}
)

func New(records RecordFinder) *Registry {
	return &Registry{factories: make(map[model.ActionType]Factory), records: records}
}

// Register binds typ to f, replacing any previous binding.
func (r *Registry) Register(typ model.ActionType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typ] = f
}

// Types returns the registered tags.
func (r *Registry) Types() []model.ActionType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ActionType, 0, len(r.factories))
	for t := range r.factories {
		out = append(out, t)
	}
	return out
}

// Instance resolves name for bot. Names with the utterance prefix resolve
// to the bot response type without a stored record.
func (r *Registry) Instance(ctx context.Context, bot, name string) (Action, error) {
	typ := model.ActionBotResponse
	if !strings.HasPrefix(name, model.UtterancePrefix) {
		rec, err := r.records.Record(ctx, bot, name)
		if err != nil {
			return nil, err
		}
		typ = rec.Type
	}
	return r.New(typ, bot, name)
}

// New instantiates typ directly.
func (r *Registry) New(typ model.ActionType, bot, name string) (Action, error) {
	r.mu.RLock()
	f, ok := r.factories[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, errx.Ef(errx.KindUnsupportedActionType, "%s type action is not supported with action server", typ)
	}
	return f(bot, name), nil
}
