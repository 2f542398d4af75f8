package integrations

import (
	"context"
	"net/http"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

type Jira struct {
	http *httpx.Client
}

func NewJira(client *httpx.Client) *Jira { return &Jira{http: client} }

type JiraIssue struct {
	URL         string
	UserName    string
	APIToken    string
	Project     string
	IssueType   string
	ParentKey   string
	Summary     string
	Description string
}

// CreateIssue files an issue and returns its browse link.
func (j *Jira) CreateIssue(ctx context.Context, in JiraIssue) (string, *Exchange, error) {
	base := strings.TrimRight(in.URL, "/")
	fields := map[string]any{
		"project":   map[string]any{"key": in.Project},
		"issuetype": map[string]any{"name": in.IssueType},
		"summary":   in.Summary,
		"description": map[string]any{
			"type":    "doc",
			"version": 1,
			"content": []any{map[string]any{
				"type":    "paragraph",
				"content": []any{map[string]any{"type": "text", "text": in.Description}},
			}},
		},
	}
	if in.ParentKey != "" {
		fields["parent"] = map[string]any{"key": in.ParentKey}
	}
	ex, err := call(ctx, j.http, "jira", httpx.Request{
		Method:    http.MethodPost,
		URL:       base + "/rest/api/3/issue",
		Body:      map[string]any{"fields": fields},
		BasicAuth: &httpx.BasicAuth{Username: in.UserName, Password: in.APIToken},
	})
	if err != nil {
		return "", ex, err
	}
	return base + "/browse/" + httpx.Stringify(field(ex.Response, "key")), ex, nil
}
