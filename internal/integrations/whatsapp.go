package integrations

import (
	"context"
	"net/http"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

// FlowMessage is an interactive WhatsApp flow message.
type FlowMessage struct {
	RecipientPhone string
	FlowID         string
	Header         string
	Body           string
	Footer         string
	Mode           string
	FlowAction     string
	FlowToken      string
	FlowCTA        string
	InitialScreen  string
}

type WhatsApp struct {
	http *httpx.Client
	base string
}

func NewWhatsApp(client *httpx.Client, bspURL string) *WhatsApp {
	return &WhatsApp{http: client, base: strings.TrimRight(bspURL, "/")}
}

// Payload is the BSP request body for m.
func (m FlowMessage) Payload() map[string]any {
	params := map[string]any{
		"flow_message_version": "3",
		"flow_token":           m.FlowToken,
		"flow_id":              m.FlowID,
		"flow_cta":             m.FlowCTA,
		"flow_action":          m.FlowAction,
	}
	if m.Mode != "" {
		params["mode"] = m.Mode
	}
	if m.InitialScreen != "" {
		params["flow_action_payload"] = map[string]any{"screen": m.InitialScreen}
	}
	interactive := map[string]any{
		"type":   "flow",
		"body":   map[string]any{"text": m.Body},
		"action": map[string]any{"name": "flow", "parameters": params},
	}
	if m.Header != "" {
		interactive["header"] = map[string]any{"type": "text", "text": m.Header}
	}
	if m.Footer != "" {
		interactive["footer"] = map[string]any{"text": m.Footer}
	}
	return map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                m.RecipientPhone,
		"type":              "interactive",
		"interactive":       interactive,
	}
}

// SendFlow posts m to the BSP with the bot's API key.
func (w *WhatsApp) SendFlow(ctx context.Context, apiKey string, m FlowMessage) (*Exchange, error) {
	return call(ctx, w.http, "whatsapp", httpx.Request{
		Method:  http.MethodPost,
		URL:     w.base + "/messages",
		Headers: map[string]string{"D360-API-KEY": apiKey},
		Body:    m.Payload(),
	})
}
