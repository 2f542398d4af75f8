// Package evaluator is the client of the external sandbox that runs
// user-authored scripts. The runtime never embeds an interpreter.
package evaluator

import (
	"context"
	"net/http"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

type (
	// Evaluator runs source with the given predefined objects.
	Evaluator interface {
		Evaluate(ctx context.Context, source string, predefined map[string]any) (*Result, error)
	}

	// Result is what a script assigned before it returned. Type stays empty
	// unless the script set one; callers fall back to their configured type.
	Result struct {
		BotResponse any            `json:"bot_response"`
		Slots       map[string]any `json:"slots"`
		Type        string         `json:"type"`
	}

	// Client posts scripts to the evaluator service, or to a cloud function
	// when Lambda is set.
	Client struct {
		http   *httpx.Client
		url    string
		lambda bool
	}

	request struct {
		SourceCode        string         `json:"source_code"`
		PredefinedObjects map[string]any `json:"predefined_objects"`
	}

	serviceResponse struct {
		Success bool    `json:"success"`
		Body    *Result `json:"body"`
		Message string  `json:"message"`
	}

	lambdaResponse struct {
		StatusCode int     `json:"statusCode"`
		Body       *Result `json:"body"`
		Error      string  `json:"errorMessage"`
	}
)

func New(client *httpx.Client, url string, lambda bool) *Client {
	return &Client{http: client, url: url, lambda: lambda}
}

func (c *Client) Evaluate(ctx context.Context, source string, predefined map[string]any) (*Result, error) {
	if predefined == nil {
		predefined = map[string]any{}
	}
	req := httpx.Request{
		Method:      http.MethodPost,
		URL:         c.url,
		Body:        request{SourceCode: source, PredefinedObjects: predefined},
		ContentType: httpx.ContentJSON,
	}
	if c.lambda {
		return c.evaluateLambda(ctx, req)
	}

	var out serviceResponse
	if _, err := c.http.DoJSON(ctx, req, &out); err != nil {
		logx.Error().Err(err).Str("url", c.url).Msg("evaluator call failed")
		return nil, errx.E(errx.KindScriptEvalFailure, "evaluator unreachable", err)
	}
	if !out.Success {
		return nil, errx.Ef(errx.KindScriptEvalFailure, "script evaluation failed: %s", out.Message)
	}
	return normalize(out.Body), nil
}

func (c *Client) evaluateLambda(ctx context.Context, req httpx.Request) (*Result, error) {
	var out lambdaResponse
	if _, err := c.http.DoJSON(ctx, req, &out); err != nil {
		logx.Error().Err(err).Str("url", c.url).Msg("evaluator lambda call failed")
		return nil, errx.E(errx.KindScriptEvalFailure, "evaluator lambda unreachable", err)
	}
	if out.StatusCode != http.StatusOK {
		return nil, errx.Ef(errx.KindScriptEvalFailure, "script evaluation failed: %s", out.Error)
	}
	return normalize(out.Body), nil
}

func normalize(r *Result) *Result {
	if r == nil {
		r = &Result{}
	}
	if r.Slots == nil {
		r.Slots = map[string]any{}
	}
	return r
}

// Func adapts a function to Evaluator.
type Func func(ctx context.Context, source string, predefined map[string]any) (*Result, error)

func (f Func) Evaluate(ctx context.Context, source string, predefined map[string]any) (*Result, error) {
	return f(ctx, source, predefined)
}

var (
	_ Evaluator = (*Client)(nil)
	_ Evaluator = Func(nil)
)
