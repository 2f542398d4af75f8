package integrations

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

type Pipedrive struct {
	http *httpx.Client
	// BaseURL overrides https://{domain}.pipedrive.com.
	BaseURL string
}

func NewPipedrive(client *httpx.Client) *Pipedrive { return &Pipedrive{http: client} }

type PipedriveLead struct {
	Domain   string
	APIToken string
	Title    string
	// Metadata keys: name, org_name, email, phone; anything else goes into the note.
	Metadata map[string]string
}

// CreateLead creates an organization, a person and a lead, then attaches a note.
func (p *Pipedrive) CreateLead(ctx context.Context, in PipedriveLead) (*Exchange, error) {
	base := p.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.pipedrive.com", in.Domain)
	}
	base = strings.TrimRight(base, "/") + "/api/v1"
	query := map[string]any{"api_token": in.APIToken}

	post := func(path string, body map[string]any) (*Exchange, any, error) {
		ex, err := call(ctx, p.http, "pipedrive", httpx.Request{
			Method: http.MethodPost, URL: base + path, Query: query, Body: body,
		})
		if err != nil {
			return ex, nil, err
		}
		return ex, field(field(ex.Response, "data"), "id"), nil
	}

	var orgID any
	if org := in.Metadata["org_name"]; org != "" {
		ex, id, err := post("/organizations", map[string]any{"name": org})
		if err != nil {
			return ex, err
		}
		orgID = id
	}

	person := map[string]any{"name": in.Metadata["name"]}
	if orgID != nil {
		person["org_id"] = orgID
	}
	if e := in.Metadata["email"]; e != "" {
		person["email"] = []string{e}
	}
	if ph := in.Metadata["phone"]; ph != "" {
		person["phone"] = []string{ph}
	}
	ex, personID, err := post("/persons", person)
	if err != nil {
		return ex, err
	}

	lead := map[string]any{"title": in.Title, "person_id": personID}
	if orgID != nil {
		lead["organization_id"] = orgID
	}
	leadEx, leadID, err := post("/leads", lead)
	if err != nil {
		return leadEx, err
	}

	if note := leadNote(in.Metadata); note != "" {
		if ex, _, err := post("/notes", map[string]any{"content": note, "lead_id": leadID}); err != nil {
			return ex, err
		}
	}
	return leadEx, nil
}

func leadNote(meta map[string]string) string {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		switch k {
		case "name", "org_name", "email", "phone":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", k, meta[k])
	}
	return strings.TrimSpace(b.String())
}
