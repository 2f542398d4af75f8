package dialog

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

func TestProcessBatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/bot/b1/chat/batch", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		require.NoError(t, jsoniter.Unmarshal(raw, &body))
		assert.Equal(t, ChannelMail, body["channel"])
		_, _ = w.Write([]byte(`{"data":[{"sender_id":"a@x.io","slots":{"name":"Ada"},"response":[{"text":"Hi Ada"},{"custom":{}}]}]}`))
	}))
	defer srv.Close()

	replies, err := NewClient(httpx.New(time.Second), srv.URL+"/").ProcessBatch(context.Background(), "b1", ChannelMail,
		[]Message{{SenderID: "a@x.io", Text: "/greet"}})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, []string{"Hi Ada"}, replies[0].Texts())
	assert.Equal(t, "Ada", replies[0].Slots["name"])
}

func TestTriggerFlowFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewClient(httpx.New(time.Second), srv.URL).TriggerFlow(context.Background(), "b1", "u1", "reminder", nil)
	assert.True(t, errx.IsKind(err, errx.KindUpstreamFailure))
}
