package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/registry"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	"github.com/Chative-core-poc-v1/actionserver/internal/callback"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

type (
	records map[string]model.ActionType

	auditLog struct {
		mu   sync.Mutex
		logs []*model.ActionServerLog
	}

	// greeter says hello and sets a slot; it fails for the "bad" name.
	greeter struct{ name string }

	panicky struct{}

	waker struct{ n atomic.Int32 }

	callbacks struct {
		err error
		got map[string]any
	}
)

func (r records) Record(_ context.Context, bot, name string) (*model.ActionRecord, error) {
	t, ok := r[name]
	if !ok {
		return nil, errx.Ef(errx.KindConfigNotFound, "no action %q", name)
	}
	return &model.ActionRecord{Bot: bot, Name: name, Type: t, Status: true}, nil
}

func (a *auditLog) Write(_ context.Context, rec *model.ActionServerLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, rec)
}

func (g greeter) Name() string           { return g.name }
func (g greeter) Type() model.ActionType { return model.ActionHTTP }
func (g greeter) Execute(_ context.Context, d model.Dispatcher, t *tracker.Tracker, _ map[string]any) (map[string]any, error) {
	if g.name == "bad" {
		d.UtterText(model.DefaultFailureResponse)
		return map[string]any{model.ResponseSlot: model.DefaultFailureResponse}, errors.New("upstream down")
	}
	d.UtterText("hello " + t.SenderID)
	return map[string]any{"greeted": true, model.ResponseSlot: "hello " + t.SenderID}, nil
}

func (panicky) Name() string           { return "boom" }
func (panicky) Type() model.ActionType { return model.ActionPyscript }
func (panicky) Execute(context.Context, model.Dispatcher, *tracker.Tracker, map[string]any) (map[string]any, error) {
	panic("escaped")
}

func (w *waker) Wake() { w.n.Add(1) }

func (c *callbacks) Handle(_ context.Context, _ string, req map[string]any) (any, error) {
	c.got = req
	if c.err != nil {
		return nil, c.err
	}
	return "ok", nil
}

func newDispatcher() (*Dispatcher, *auditLog) {
	reg := registry.New(records{"greet": model.ActionHTTP, "bad": model.ActionHTTP, "boom": model.ActionPyscript})
	reg.Register(model.ActionHTTP, func(_, name string) registry.Action { return greeter{name: name} })
	reg.Register(model.ActionPyscript, func(string, string) registry.Action { return panicky{} })
	reg.Register(model.ActionBotResponse, func(_, name string) registry.Action { return greeter{name: name} })
	a := &auditLog{}
	return NewDispatcher(reg, a), a
}

func newTracker(bot string) *tracker.Tracker {
	slots := map[string]any{}
	if bot != "" {
		slots[model.BotSlot] = bot
	}
	return &tracker.Tracker{SenderID: "u1", Slots: slots}
}

func TestProcessAction(t *testing.T) {
	t.Parallel()
	d, audit := newDispatcher()
	ctx := context.Background()

	var c model.Collector
	events := d.ProcessAction(ctx, &c, newTracker("b1"), nil, "greet")
	assert.Equal(t, []SlotEvent{
		{Event: "slot", Name: "greeted", Value: true},
		{Event: "slot", Name: model.ResponseSlot, Value: "hello u1"},
	}, events)
	assert.Empty(t, audit.logs)

	events = d.ProcessAction(ctx, &c, newTracker("b1"), nil, "bad")
	assert.Equal(t, []SlotEvent{{Event: "slot", Name: model.ResponseSlot, Value: model.DefaultFailureResponse}}, events)
	assert.Empty(t, audit.logs)
}

func TestProcessActionFailuresBeforeExecution(t *testing.T) {
	t.Parallel()
	d, audit := newDispatcher()
	ctx := context.Background()

	events := d.ProcessAction(ctx, model.Discard, newTracker(""), nil, "greet")
	assert.Empty(t, events)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, model.StatusFailure, audit.logs[0].Status)
	assert.Contains(t, audit.logs[0].Exception, "bot id")

	events = d.ProcessAction(ctx, model.Discard, newTracker("b1"), nil, "missing")
	assert.Empty(t, events)
	require.Len(t, audit.logs, 2)
	assert.Equal(t, "b1", audit.logs[1].Bot)

	events = d.ProcessAction(ctx, model.Discard, newTracker("b1"), nil, "boom")
	assert.Empty(t, events)
	require.Len(t, audit.logs, 3)
	assert.Contains(t, audit.logs[2].Exception, "escaped")
	assert.Equal(t, model.ActionPyscript, audit.logs[2].Type)
}

func TestWebhook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d, _ := newDispatcher()
	router := New(Options{Dispatcher: d}).Router()

	body := `{"next_action":"greet","sender_id":"u7","tracker":{"slots":{"bot":"b1"},"latest_message":{"text":"hi"}}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var out WebhookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.Len(t, out.Events, 2)
	assert.Equal(t, "greeted", out.Events[0].Name)
	require.Len(t, out.Responses, 1)
	assert.Equal(t, "hello u7", out.Responses[0].Text)
}

func TestWebhookRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	d, _ := newDispatcher()
	router := New(Options{Dispatcher: d}).Router()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"sender_id":"u7"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestHealthAndDispatchEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := &waker{}
	router := New(Options{Scheduler: w}).Router()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/events/dispatch/ev-1", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "ev-1")
	assert.Equal(t, int32(1), w.n.Load())

	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCallbackRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"unknown", errx.E(errx.KindConfigNotFound, callback.ErrUnknown.Error(), callback.ErrUnknown), http.StatusNotFound},
		{"expired", errx.E(errx.KindConfigNotFound, callback.ErrExpired.Error(), callback.ErrExpired), http.StatusGone},
		{"script", errx.Ef(errx.KindScriptEvalFailure, "bad script"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cb := &callbacks{err: tc.err}
			router := New(Options{Callbacks: cb}).Router()
			req := httptest.NewRequest(http.MethodPost, "/callback/d/abc", strings.NewReader(`{"status":"paid"}`))
			req.Header.Set("Content-Type", "application/json")
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)

			assert.Equal(t, tc.want, resp.Code)
			assert.Equal(t, "paid", cb.got["status"])
		})
	}
}
