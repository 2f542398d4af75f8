package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSecrets struct {
	calls int
	data  map[string]string
	err   error
}

func (c *countingSecrets) Dump(context.Context, string) (map[string]string, error) {
	c.calls++
	return c.data, c.err
}

func sampleTracker() *Tracker {
	return &Tracker{
		SenderID: "user-1",
		Slots:    map[string]any{"bot": "bot1", "city": "Pune"},
		LatestMessage: Message{
			Text:   "/greet",
			Intent: Intent{Name: "greet", Confidence: 0.9},
			Entities: []Entity{
				{Entity: "kairon_user_msg", Value: "hello there"},
			},
		},
		Events: []Event{
			{Event: EventSessionStarted, Timestamp: 1700000000},
			{Event: EventUser, Text: "hi"},
			{Event: EventAction, Name: "action_listen"},
			{Event: EventBot, Text: "hello!"},
			{Event: EventSlot, Name: "city", Value: "Pune"},
			{Event: EventBot, Data: map[string]any{"custom": "card"}},
			{Event: EventUser, Text: "/greet"},
		},
	}
}

func TestBuildContext(t *testing.T) {
	t.Parallel()
	b := NewBuilder(sampleTracker(), "bot1", nil)
	c, err := b.Build(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, "bot1", c.Bot)
	assert.Equal(t, "user-1", c.SenderID)
	assert.Equal(t, "/greet", c.UserMessage)
	assert.Equal(t, "greet", c.Intent)
	assert.Equal(t, "hello there", c.KaironUserMsg)
	assert.Equal(t, "2023-11-14T22:13:20Z", c.SessionStarted)
	assert.Equal(t, []map[string]any{
		{"user": "hi"},
		{"bot": "hello!"},
		{"bot": map[string]any{"custom": "card"}},
		{"user": "/greet"},
	}, c.ChatLog)
	assert.Nil(t, c.KeyVault)
}

func TestBuildContextIsCached(t *testing.T) {
	t.Parallel()
	secrets := &countingSecrets{data: map[string]string{"API": "k"}}
	b := NewBuilder(sampleTracker(), "bot1", secrets)

	first, err := b.Build(context.Background(), false)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), false)
	require.NoError(t, err)
	assert.Same(t, first, second)

	withVault, err := b.Build(context.Background(), true)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, secrets.calls)
	assert.Equal(t, "k", withVault.KeyVault["API"])
	assert.Nil(t, first.KeyVault)
}

func TestBuildContextVaultError(t *testing.T) {
	t.Parallel()
	b := NewBuilder(sampleTracker(), "bot1", &countingSecrets{err: errors.New("down")})
	_, err := b.Build(context.Background(), true)
	require.Error(t, err)
}

func TestContextMap(t *testing.T) {
	t.Parallel()
	c, err := NewBuilder(sampleTracker(), "bot1", nil).Build(context.Background(), false)
	require.NoError(t, err)
	m := c.Map()
	assert.Equal(t, "user-1", m["sender_id"])
	assert.Equal(t, map[string]any{"bot": "bot1", "city": "Pune"}, m["slot"])
	_, hasVault := m["key_vault"]
	assert.False(t, hasVault)
	assert.Len(t, m["chat_log"], 4)
}
