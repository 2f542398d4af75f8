// Package integrations wraps the third-party REST APIs that vendor actions call.
// Every call returns the request and response bodies so actions can audit them.
package integrations

import (
	"context"
	"fmt"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

// Exchange is what an integration sent and received.
type Exchange struct {
	Request  any
	Response any
	Status   int
}

func call(ctx context.Context, client *httpx.Client, vendor string, req httpx.Request) (*Exchange, error) {
	if req.ContentType == "" {
		req.ContentType = httpx.ContentJSON
	}
	ex := &Exchange{Request: req.Body}
	resp, err := client.Do(ctx, req)
	if err != nil {
		return ex, errx.E(errx.KindIntegrationFailure, vendor+" request failed", err)
	}
	ex.Response, ex.Status = resp.Body, resp.StatusCode
	if !resp.OK() {
		return ex, errx.E(errx.KindIntegrationFailure,
			fmt.Sprintf("%s returned status %d", vendor, resp.StatusCode),
			&httpx.StatusError{StatusCode: resp.StatusCode, Body: resp.Text()})
	}
	return ex, nil
}

func field(body any, key string) any {
	if m, ok := body.(map[string]any); ok {
		return m[key]
	}
	return nil
}
