package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

type records map[string]model.ActionType

func (r records) Record(_ context.Context, bot, name string) (*model.ActionRecord, error) {
	t, ok := r[name]
	if !ok {
		return nil, errx.Ef(errx.KindConfigNotFound, "no action %q", name)
	}
	return &model.ActionRecord{Bot: bot, Name: name, Type: t, Status: true}, nil
}

type stub struct {
	name string
	typ  model.ActionType
}

func (s stub) Name() string           { return s.name }
func (s stub) Type() model.ActionType { return s.typ }
func (s stub) Execute(context.Context, model.Dispatcher, *tracker.Tracker, map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

func factory(typ model.ActionType) Factory {
	return func(_, name string) Action { return stub{name: name, typ: typ} }
}

func TestInstance(t *testing.T) {
	t.Parallel()
	r := New(records{"call_api": model.ActionHTTP, "odd": model.ActionType("unknown_action")})
	r.Register(model.ActionHTTP, factory(model.ActionHTTP))
	r.Register(model.ActionBotResponse, factory(model.ActionBotResponse))

	a, err := r.Instance(context.Background(), "b", "call_api")
	require.NoError(t, err)
	assert.Equal(t, model.ActionHTTP, a.Type())
	assert.Equal(t, "call_api", a.Name())

	a, err = r.Instance(context.Background(), "b", "utter_greet")
	require.NoError(t, err)
	assert.Equal(t, model.ActionBotResponse, a.Type())

	_, err = r.Instance(context.Background(), "b", "odd")
	assert.True(t, errx.IsKind(err, errx.KindUnsupportedActionType))

	_, err = r.Instance(context.Background(), "b", "missing")
	assert.True(t, errx.IsKind(err, errx.KindConfigNotFound))
	assert.Len(t, r.Types(), 2)
}
