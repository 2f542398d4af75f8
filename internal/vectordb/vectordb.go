// Package vectordb runs similarity and payload queries against a bot's
// knowledge collections.
package vectordb

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

const (
	TypeQdrant = "qdrant"

	QueryEmbedding = "embedding_search"
	QueryPayload   = "payload_search"

	collectionSuffix = "_faq_embd"
)

// Point is one stored record returned by a query.
type Point struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type DB interface {
	Search(ctx context.Context, collection string, vector []float64, limit int, threshold float64) ([]Point, error)
	Scroll(ctx context.Context, collection string, filter any, limit int) ([]Point, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// CollectionName scopes a logical collection to a bot.
func CollectionName(bot, name string) string {
	return bot + "_" + name + collectionSuffix
}

// Open returns the DB implementation registered for dbType.
func Open(dbType string, client *httpx.Client, url, apiKey string) (DB, error) {
	switch strings.ToLower(dbType) {
	case TypeQdrant, "":
		return NewQdrant(client, url, apiKey), nil
	default:
		return nil, errx.Ef(errx.KindIntegrationFailure, "unsupported vector db type %q", dbType)
	}
}

// Qdrant talks to the Qdrant REST API.
type Qdrant struct {
	http   *httpx.Client
	base   string
	apiKey string
}

func NewQdrant(client *httpx.Client, url, apiKey string) *Qdrant {
	return &Qdrant{http: client, base: strings.TrimRight(url, "/"), apiKey: apiKey}
}

type pointsResponse struct {
	Result []Point `json:"result"`
}

type scrollResponse struct {
	Result struct {
		Points []Point `json:"points"`
	} `json:"result"`
}

func (q *Qdrant) headers() map[string]string {
	if q.apiKey == "" {
		return nil
	}
	return map[string]string{"api-key": q.apiKey}
}

func (q *Qdrant) Search(ctx context.Context, collection string, vector []float64, limit int, threshold float64) ([]Point, error) {
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold > 0 {
		body["score_threshold"] = threshold
	}
	var out pointsResponse
	_, err := q.http.DoJSON(ctx, httpx.Request{
		Method:      http.MethodPost,
		URL:         fmt.Sprintf("%s/collections/%s/points/search", q.base, collection),
		Headers:     q.headers(),
		Body:        body,
		ContentType: httpx.ContentJSON,
	}, &out)
	if err != nil {
		return nil, errx.E(errx.KindUpstreamFailure, "vector search on "+collection+" failed", err)
	}
	return out.Result, nil
}

func (q *Qdrant) Scroll(ctx context.Context, collection string, filter any, limit int) ([]Point, error) {
	body := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	if filter != nil {
		body["filter"] = filter
	}
	var out scrollResponse
	_, err := q.http.DoJSON(ctx, httpx.Request{
		Method:      http.MethodPost,
		URL:         fmt.Sprintf("%s/collections/%s/points/scroll", q.base, collection),
		Headers:     q.headers(),
		Body:        body,
		ContentType: httpx.ContentJSON,
	}, &out)
	if err != nil {
		return nil, errx.E(errx.KindUpstreamFailure, "payload search on "+collection+" failed", err)
	}
	return out.Result.Points, nil
}

// Searcher embeds free text before searching.
type Searcher struct {
	db       DB
	embedder Embedder
}

func NewSearcher(db DB, embedder Embedder) *Searcher {
	return &Searcher{db: db, embedder: embedder}
}

// Similar returns the points closest to text.
func (s *Searcher) Similar(ctx context.Context, collection, text string, limit int, threshold float64) ([]Point, error) {
	if s.embedder == nil {
		return nil, errx.Ef(errx.KindIntegrationFailure, "no embedder configured")
	}
	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, errx.E(errx.KindUpstreamFailure, "embedding failed", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, errx.Ef(errx.KindUpstreamFailure, "embedding returned no vector")
	}
	return s.db.Search(ctx, collection, vectors[0], limit, threshold)
}

// Query runs a database action payload item. Embedding queries search
// by the string form of value; payload queries pass value as the filter.
func (s *Searcher) Query(ctx context.Context, collection, queryType string, value any, limit int) (map[string]any, error) {
	var (
		points []Point
		err    error
	)
	switch queryType {
	case QueryEmbedding:
		points, err = s.Similar(ctx, collection, httpx.Stringify(value), limit, 0)
	case QueryPayload:
		points, err = s.db.Scroll(ctx, collection, value, limit)
	default:
		return nil, errx.Ef(errx.KindIntegrationFailure, "unsupported query type %q", queryType)
	}
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": ToMaps(points)}, nil
}

// ToMaps renders points the way they appear to response templates.
func ToMaps(points []Point) []any {
	out := make([]any, 0, len(points))
	for _, p := range points {
		m := map[string]any{"id": p.ID, "payload": p.Payload}
		if p.Score != 0 {
			m["score"] = p.Score
		}
		out = append(out, m)
	}
	return out
}
