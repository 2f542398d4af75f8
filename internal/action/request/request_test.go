package request

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/params"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

type secrets map[string]string

func (s secrets) Get(_ context.Context, _ string, key string, _ bool) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

func newComposer(eval evaluator.Evaluator) *Composer {
	c := New(params.NewResolver(secrets{"TOKEN": "abcdef"}, nil), eval)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return c
}

func tctx() *tracker.Context {
	return &tracker.Context{Bot: "b", SenderID: "s", Slots: map[string]any{"user": "42"}}
}

func TestValidateMethod(t *testing.T) {
	t.Parallel()
	for _, m := range []string{"get", "POST", "Put", "DELETE"} {
		_, err := ValidateMethod(m)
		assert.NoError(t, err, m)
	}
	_, err := ValidateMethod("PATCH")
	assert.True(t, errx.IsKind(err, errx.KindInvalidMethod))
}

func TestHTTPGetUsesQuery(t *testing.T) {
	t.Parallel()
	cfg := &model.HTTPActionConfig{
		Name:   "a",
		URL:    "http://h/p?u=$user",
		Method: "GET",
		Headers: []model.ParameterSpec{
			{Key: "Authorization", Source: model.SourceKeyVault, Value: "TOKEN"},
		},
		Params: []model.ParameterSpec{{Key: "q", Source: model.SourceSenderID}},
	}
	req, log, err := newComposer(nil).HTTP(context.Background(), tctx(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "http://h/p?u=42", req.URL)
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, map[string]any{"q": "s"}, req.Query)
	assert.Nil(t, req.Body)
	assert.Equal(t, "abcdef", req.Headers["Authorization"])
	assert.Equal(t, "2024-05-01T10:00:00Z", req.Headers[model.RequestTimestampHeader])
	assert.Equal(t, "****ef", log.Headers["Authorization"])
}

func TestHTTPPostForm(t *testing.T) {
	t.Parallel()
	cfg := &model.HTTPActionConfig{URL: "http://h", Method: "post", ContentType: httpx.ContentForm}
	req, _, err := newComposer(nil).HTTP(context.Background(), tctx(), cfg)
	require.NoError(t, err)
	assert.Equal(t, httpx.ContentForm, req.ContentType)
	assert.Equal(t, map[string]any{}, req.Body)
}

func TestHTTPInvalidMethod(t *testing.T) {
	t.Parallel()
	_, _, err := newComposer(nil).HTTP(context.Background(), tctx(), &model.HTTPActionConfig{URL: "http://h", Method: "TRACE"})
	assert.True(t, errx.IsKind(err, errx.KindInvalidMethod))
}

func TestHTTPDynamicParams(t *testing.T) {
	t.Parallel()
	eval := evaluator.Func(func(_ context.Context, src string, pre map[string]any) (*evaluator.Result, error) {
		return &evaluator.Result{BotResponse: map[string]any{"sender": pre["sender_id"]}}, nil
	})
	cfg := &model.HTTPActionConfig{URL: "http://h", Method: "POST", DynamicParams: "bot_response = {...}"}
	req, log, err := newComposer(eval).HTTP(context.Background(), tctx(), cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"sender": "s"}, req.Body)
	assert.Equal(t, req.Body, log.Body)
}

func TestRecipients(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, Recipients("a@x.io, b@x.io"))
	assert.Equal(t, []string{"c@x.io"}, Recipients([]any{"c@x.io", ""}))
	assert.Empty(t, Recipients(nil))
}
