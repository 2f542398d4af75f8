// Package dialog is the client side of the dialog engine: it injects
// synthetic messages and triggers flows on behalf of the action server.
package dialog

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

const ChannelMail = "mail"

// Message is one inbound user message for the engine.
type Message struct {
	SenderID string `json:"sender_id"`
	Text     string `json:"text"`
}

// Reply is the engine's answer to one Message.
type Reply struct {
	SenderID  string           `json:"sender_id"`
	Slots     map[string]any   `json:"slots"`
	Responses []map[string]any `json:"response"`
}

// Texts returns the text parts of the bot responses.
func (r Reply) Texts() []string {
	out := make([]string, 0, len(r.Responses))
	for _, resp := range r.Responses {
		if t, ok := resp["text"].(string); ok && t != "" {
			out = append(out, t)
		}
	}
	return out
}

type Engine interface {
	ProcessBatch(ctx context.Context, bot, channel string, msgs []Message) ([]Reply, error)
	TriggerFlow(ctx context.Context, bot, senderID, flowName string, slots map[string]any) error
}

// Client calls the chat server over HTTP.
type Client struct {
	http *httpx.Client
	base string
}

func NewClient(client *httpx.Client, chatServerURL string) *Client {
	return &Client{http: client, base: strings.TrimRight(chatServerURL, "/")}
}

func (c *Client) ProcessBatch(ctx context.Context, bot, channel string, msgs []Message) ([]Reply, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	var out struct {
		Data []Reply `json:"data"`
	}
	_, err := c.http.DoJSON(ctx, httpx.Request{
		Method:      http.MethodPost,
		URL:         fmt.Sprintf("%s/api/bot/%s/chat/batch", c.base, bot),
		Body:        map[string]any{"channel": channel, "messages": msgs},
		ContentType: httpx.ContentJSON,
	}, &out)
	if err != nil {
		return nil, errx.E(errx.KindUpstreamFailure, "dialog engine batch failed", err)
	}
	if len(out.Data) != len(msgs) {
		logx.Warn().Str("bot", bot).Int("sent", len(msgs)).Int("received", len(out.Data)).Msg("dialog engine reply count mismatch")
	}
	return out.Data, nil
}

func (c *Client) TriggerFlow(ctx context.Context, bot, senderID, flowName string, slots map[string]any) error {
	_, err := c.http.DoJSON(ctx, httpx.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/api/bot/%s/flow/trigger", c.base, bot),
		Body: map[string]any{
			"sender_id": senderID,
			"flow_name": flowName,
			"slots":     slots,
		},
		ContentType: httpx.ContentJSON,
	}, nil)
	if err != nil {
		return errx.E(errx.KindUpstreamFailure, "flow trigger "+flowName+" failed", err)
	}
	logx.Debug().Str("bot", bot).Str("flow", flowName).Str("sender_id", senderID).Msg("flow triggered")
	return nil
}
