package integrations

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

const hubspotFormsURL = "https://api.hsforms.com"

type Hubspot struct {
	http    *httpx.Client
	BaseURL string
}

func NewHubspot(client *httpx.Client) *Hubspot {
	return &Hubspot{http: client, BaseURL: hubspotFormsURL}
}

// SubmitForm posts field values to a HubSpot form.
func (h *Hubspot) SubmitForm(ctx context.Context, portalID, formGUID string, fields map[string]any) (*Exchange, error) {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	list := make([]any, 0, len(names))
	for _, k := range names {
		list = append(list, map[string]any{"name": k, "value": fields[k]})
	}
	return call(ctx, h.http, "hubspot", httpx.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/submissions/v3/integration/submit/%s/%s", h.BaseURL, portalID, formGUID),
		Body:   map[string]any{"fields": list},
	})
}
