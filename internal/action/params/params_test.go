package params

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/keyvault"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
)

type fakeSecrets map[string]string

func (f fakeSecrets) Get(_ context.Context, _ string, key string, _ bool) (string, bool, error) {
	v, ok := f[key]
	return v, ok, nil
}

func testContext() *tracker.Context {
	return &tracker.Context{
		Bot:            "bot1",
		SenderID:       "sender-9",
		UserMessage:    "/book",
		Intent:         "book",
		KaironUserMsg:  "book a table",
		Slots:          map[string]any{"user": float64(42), "city": "Pune"},
		ChatLog:        []map[string]any{{"user": "hi"}, {"bot": "hello"}},
		SessionStarted: "2024-01-01T00:00:00Z",
	}
}

func TestResolveSources(t *testing.T) {
	t.Parallel()
	c, err := keyvault.NewCipher("params-test")
	require.NoError(t, err)
	enc, err := c.Encrypt("topsecret")
	require.NoError(t, err)

	r := NewResolver(fakeSecrets{"API_KEY": "vault-value"}, c)
	specs := []model.ParameterSpec{
		{Key: "sender", Source: model.SourceSenderID},
		{Key: "user", Source: model.SourceSlot, Value: "user"},
		{Key: "missing", Source: model.SourceSlot, Value: "nope"},
		{Key: "msg", Source: model.SourceUserMessage},
		{Key: "intent", Source: model.SourceIntent},
		{Key: "lit", Source: model.SourceLiteral, Value: "plain"},
		{Key: "secret", Source: model.SourceLiteral, Value: enc, Encrypt: true},
		{Key: "vault", Source: model.SourceKeyVault, Value: "API_KEY"},
		{Key: "gone", Source: model.SourceKeyVault, Value: "NOT_THERE"},
		{Key: "log", Source: model.SourceChatLog, Encrypt: true},
	}
	values, logged, err := r.Resolve(context.Background(), testContext(), specs)
	require.NoError(t, err)

	assert.Equal(t, "sender-9", values["sender"])
	assert.Equal(t, float64(42), values["user"])
	assert.Nil(t, values["missing"])
	assert.Equal(t, "book a table", values["msg"])
	assert.Equal(t, "book", values["intent"])
	assert.Equal(t, "plain", values["lit"])
	assert.Equal(t, "topsecret", values["secret"])
	assert.Equal(t, "*******et", logged["secret"])
	assert.Equal(t, "vault-value", values["vault"])
	assert.Equal(t, "*********ue", logged["vault"])
	assert.Nil(t, values["gone"])

	chat, ok := values["log"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sender-9", chat["sender_id"])
	assert.Equal(t, "2024-01-01T00:00:00Z", chat["session_started"])
	assert.Equal(t, values["log"], logged["log"])
}

func TestUserMessageWithoutEntity(t *testing.T) {
	t.Parallel()
	tc := testContext()
	tc.KaironUserMsg = ""
	assert.Equal(t, "/book", UserMessage(tc))
}

func TestEncryptedLogNeverLeaksSecret(t *testing.T) {
	t.Parallel()
	c, err := keyvault.NewCipher("params-test")
	require.NoError(t, err)
	r := NewResolver(nil, c)
	for _, secret := range []string{"abc", "password123", "zz", "k"} {
		enc, err := c.Encrypt(secret)
		require.NoError(t, err)
		_, logged, err := r.Value(context.Background(), testContext(), model.ParameterSpec{Key: "k", Value: enc, Encrypt: true})
		require.NoError(t, err)
		s := logged.(string)
		keep := 2
		if len(secret) <= 2 {
			keep = 0
		}
		head := s[:len(s)-keep]
		assert.Equal(t, strings.Repeat("*", len(head)), head)
	}
}

func TestSubstituteURL(t *testing.T) {
	t.Parallel()
	r := NewResolver(fakeSecrets{"TOKEN": "t0k"}, nil)
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"slot", "http://h/p?u=$user", "http://h/p?u=42"},
		{"reserved", "http://h/$SENDER_ID/$INTENT?q=$USER_MESSAGE", "http://h/sender-9/book?q=book a table"},
		{"vault", "http://h/p?token=$$TOKEN&city=$city", "http://h/p?token=t0k&city=Pune"},
		{"unresolved", "http://h/$unknown/$$MISSING", "http://h//"},
		{"no tokens", "http://h/plain", "http://h/plain"},
		{"reserved before slot", "http://h/$SENDER_IDx?i=$INTENTS", "http://h/sender-9x?i=bookS"},
		{"vault named like reserved", "http://h/$$SENDER_ID", "http://h/"},
	}
	token := regexp.MustCompile(`\$\$?[A-Za-z_]`)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := r.SubstituteURL(context.Background(), testContext(), tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.False(t, token.MatchString(got))
		})
	}
}
