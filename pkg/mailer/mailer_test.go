package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Hello Ada & co", PlainText("<p>Hello <b>Ada</b> &amp; co</p>"))
}

func TestBuildRejectsBadInput(t *testing.T) {
	t.Parallel()
	_, err := build(Message{From: "bot@example.com"})
	require.Error(t, err)

	_, err = build(Message{From: "not an address", To: []string{"a@example.com"}})
	require.Error(t, err)

	msg, err := build(Message{From: "bot@example.com", To: []string{"a@example.com"}, Subject: "hi", HTML: "<b>x</b>"})
	require.NoError(t, err)
	assert.NotNil(t, msg)
}

func TestSendRequiresHost(t *testing.T) {
	t.Parallel()
	err := SMTP{}.Send(context.Background(), Server{}, Message{})
	require.Error(t, err)
}
