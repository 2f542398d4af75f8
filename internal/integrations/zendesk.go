package integrations

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

type Zendesk struct {
	http *httpx.Client
	// BaseURL overrides https://{subdomain}.zendesk.com.
	BaseURL string
}

func NewZendesk(client *httpx.Client) *Zendesk { return &Zendesk{http: client} }

type ZendeskTicket struct {
	Subdomain string
	UserName  string
	APIToken  string
	Subject   string
	Comment   string
	Tags      []string
}

func (z *Zendesk) CreateTicket(ctx context.Context, in ZendeskTicket) (*Exchange, error) {
	base := z.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.zendesk.com", in.Subdomain)
	}
	ticket := map[string]any{
		"subject": in.Subject,
		"comment": map[string]any{"html_body": in.Comment},
	}
	if len(in.Tags) > 0 {
		ticket["tags"] = in.Tags
	}
	return call(ctx, z.http, "zendesk", httpx.Request{
		Method:    http.MethodPost,
		URL:       base + "/api/v2/tickets.json",
		Body:      map[string]any{"ticket": ticket},
		BasicAuth: &httpx.BasicAuth{Username: in.UserName + "/token", Password: in.APIToken},
	})
}
