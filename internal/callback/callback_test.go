package callback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/repo"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	"github.com/Chative-core-poc-v1/actionserver/internal/store/memstore"
)

func newService(t *testing.T, expireIn int64, eval evaluator.Evaluator) (*Service, store.Store) {
	t.Helper()
	s := memstore.New()
	_, err := s.Insert(context.Background(), model.CollectionCallbackConfig, model.CallbackConfig{
		Bot: "b1", Name: "payment_done", PyscriptCode: "bot_response = req_body['status']", ExpireIn: expireIn, Status: true,
	})
	require.NoError(t, err)
	return NewService(repo.NewConfigs(s, repo.NewMemoryCache(0)), eval, "http://cb.local/callback/d/"), s
}

func TestCreateAndHandle(t *testing.T) {
	t.Parallel()

	var got map[string]any
	eval := evaluator.Func(func(_ context.Context, _ string, pre map[string]any) (*evaluator.Result, error) {
		got = pre
		return &evaluator.Result{BotResponse: "paid", Slots: map[string]any{}}, nil
	})
	svc, s := newService(t, 0, eval)
	ctx := context.Background()

	data, err := svc.Create(ctx, "b1", "pay", "payment_done", "u1", map[string]any{"order": "o-9"})
	require.NoError(t, err)
	assert.Equal(t, "http://cb.local/callback/d/"+data.Identifier, data.CallbackURL)
	assert.Nil(t, data.ExpiresAt)

	out, err := svc.Handle(ctx, data.Identifier, map[string]any{"status": "paid"})
	require.NoError(t, err)
	assert.Equal(t, "paid", out)
	assert.Equal(t, map[string]any{"order": "o-9"}, got["metadata"])

	var logs []model.CallbackLog
	require.NoError(t, s.Find(ctx, model.CollectionCallbackLog, bson.M{"identifier": data.Identifier}, store.FindOptions{}, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, model.StatusSuccess, logs[0].Status)

	_, err = svc.Handle(ctx, data.Identifier, nil)
	assert.True(t, errx.IsKind(err, errx.KindConfigNotFound))
}

func TestHandleExpired(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, 60, evaluator.Func(func(context.Context, string, map[string]any) (*evaluator.Result, error) {
		t.Fatal("script must not run for an expired callback")
		return nil, nil
	}))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	data, err := svc.Create(ctx, "b1", "pay", "payment_done", "u1", nil)
	require.NoError(t, err)
	require.NotNil(t, data.ExpiresAt)

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = svc.Handle(ctx, data.Identifier, nil)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCreateUnknownCallback(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t, 0, nil)
	_, err := svc.Create(context.Background(), "b1", "pay", "missing", "u1", nil)
	assert.True(t, errx.IsKind(err, errx.KindConfigNotFound))
}
