package integrations

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

const googleSearchURL = "https://www.googleapis.com/customsearch/v1"

// SearchResult is the normalised shape of any search hit.
type SearchResult struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Link  string `json:"link"`
}

type Search struct {
	http      *httpx.Client
	googleURL string
	webURL    string
}

// NewSearch takes the custom-search endpoint (empty for Google's) and the
// web-search service endpoint used when no API key is configured.
func NewSearch(client *httpx.Client, googleURL, webURL string) *Search {
	if googleURL == "" {
		googleURL = googleSearchURL
	}
	return &Search{http: client, googleURL: googleURL, webURL: webURL}
}

// Google queries the custom-search API.
func (s *Search) Google(ctx context.Context, apiKey, engineID, query string, num int) ([]SearchResult, *Exchange, error) {
	if num <= 0 {
		num = 1
	}
	ex, err := call(ctx, s.http, "google search", httpx.Request{
		Method: http.MethodGet,
		URL:    s.googleURL,
		Query:  map[string]any{"key": apiKey, "cx": engineID, "q": query, "num": num},
	})
	if err != nil {
		return nil, ex, err
	}
	items, _ := field(ex.Response, "items").([]any)
	out := make([]SearchResult, 0, len(items))
	for _, it := range items {
		out = append(out, SearchResult{
			Title: httpx.Stringify(field(it, "title")),
			Text:  httpx.Stringify(field(it, "snippet")),
			Link:  httpx.Stringify(field(it, "link")),
		})
	}
	return out, ex, nil
}

// Web asks the web-search service, optionally restricted to one website.
func (s *Search) Web(ctx context.Context, query, website string, topN int) ([]SearchResult, *Exchange, error) {
	if s.webURL == "" {
		return nil, nil, errx.Ef(errx.KindIntegrationFailure, "web search url is not configured")
	}
	if topN <= 0 {
		topN = 1
	}
	body := map[string]any{"text": query, "topn": topN}
	if website != "" {
		body["site"] = website
	}
	ex, err := call(ctx, s.http, "web search", httpx.Request{
		Method: http.MethodPost,
		URL:    s.webURL,
		Body:   body,
	})
	if err != nil {
		return nil, ex, err
	}
	if e := field(ex.Response, "error_code"); e != nil && httpx.Stringify(e) != "0" {
		return nil, ex, errx.Ef(errx.KindIntegrationFailure, "web search failed: %s", httpx.Stringify(field(ex.Response, "message")))
	}
	hits, _ := field(ex.Response, "data").([]any)
	out := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		r := SearchResult{
			Title: httpx.Stringify(field(h, "title")),
			Text:  httpx.Stringify(field(h, "description")),
			Link:  httpx.Stringify(field(h, "url")),
		}
		if r.Text == "" {
			r.Text = httpx.Stringify(field(h, "text"))
		}
		if r.Link == "" {
			r.Link = httpx.Stringify(field(h, "link"))
		}
		out = append(out, r)
	}
	return out, ex, nil
}

// FormatHTML renders results as text followed by an anchor to the source.
func FormatHTML(results []SearchResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf(
			"%s\nTo know more, please visit: <a href = \"%s\" target=\"_blank\" >%s</a>",
			html.EscapeString(r.Text), html.EscapeString(r.Link), html.EscapeString(r.Title)))
	}
	return strings.Join(parts, "\n")
}
