// Package request builds outbound HTTP and SMTP requests from action
// configs and resolved parameters.
package request

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/params"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
	"github.com/Chative-core-poc-v1/actionserver/pkg/mailer"
)

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
}

type (
	Composer struct {
		params *params.Resolver
		eval   evaluator.Evaluator
		now    func() time.Time
	}

	// Log is the masked rendition of a request for the audit record.
	Log struct {
		URL     string
		Headers map[string]any
		Body    any
	}
)

func New(p *params.Resolver, eval evaluator.Evaluator) *Composer {
	return &Composer{params: p, eval: eval, now: time.Now}
}

// Resolver exposes the parameter resolver.
func (c *Composer) Resolver() *params.Resolver {
	return c.params
}

// ValidateMethod upper-cases method and rejects anything outside GET, POST, PUT and DELETE.
func ValidateMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if _, ok := allowedMethods[m]; !ok {
		return "", errx.Ef(errx.KindInvalidMethod, "invalid request method %q", method)
	}
	return m, nil
}

// HTTP builds the request of an HTTP action.
func (c *Composer) HTTP(ctx context.Context, tc *tracker.Context, cfg *model.HTTPActionConfig) (*httpx.Request, *Log, error) {
	method, err := ValidateMethod(cfg.Method)
	if err != nil {
		return nil, nil, err
	}
	url, err := c.params.SubstituteURL(ctx, tc, cfg.URL)
	if err != nil {
		return nil, nil, err
	}

	headerValues, headerLog, err := c.params.Resolve(ctx, tc, cfg.Headers)
	if err != nil {
		return nil, nil, err
	}
	headers := make(map[string]string, len(headerValues)+1)
	for k, v := range headerValues {
		headers[k] = httpx.Stringify(v)
	}
	ts := c.now().UTC().Format(time.RFC3339Nano)
	headers[model.RequestTimestampHeader] = ts
	headerLog[model.RequestTimestampHeader] = ts

	var body, bodyLog map[string]any
	if strings.TrimSpace(cfg.DynamicParams) != "" {
		body, err = c.Dynamic(ctx, tc, cfg.DynamicParams)
		if err != nil {
			return nil, nil, err
		}
		bodyLog = body
	} else {
		body, bodyLog, err = c.params.Resolve(ctx, tc, cfg.Params)
		if err != nil {
			return nil, nil, err
		}
	}

	contentType := cfg.ContentType
	if contentType == "" {
		contentType = httpx.ContentJSON
	}
	req := &httpx.Request{
		Method:      method,
		URL:         url,
		Headers:     headers,
		ContentType: contentType,
	}
	switch {
	case method == http.MethodGet || method == http.MethodDelete:
		if len(body) > 0 {
			req.Query = body
		}
	case contentType == httpx.ContentForm:
		req.Body = body
	default:
		if body == nil {
			body = map[string]any{}
		}
		req.Body = body
	}
	return req, &Log{URL: url, Headers: headerLog, Body: bodyLog}, nil
}

// Dynamic evaluates a script whose bot_response becomes the request body.
func (c *Composer) Dynamic(ctx context.Context, tc *tracker.Context, source string) (map[string]any, error) {
	if c.eval == nil {
		return nil, errx.Ef(errx.KindScriptEvalFailure, "no evaluator configured")
	}
	res, err := c.eval.Evaluate(ctx, source, tc.Map())
	if err != nil {
		return nil, err
	}
	switch v := res.BotResponse.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return map[string]any{}, nil
	default:
		return nil, errx.Ef(errx.KindScriptEvalFailure, "dynamic params must evaluate to an object, got %T", v)
	}
}

// Email resolves the sender, recipients and SMTP credentials of an email action.
func (c *Composer) Email(ctx context.Context, tc *tracker.Context, cfg *model.EmailActionConfig, html string) (*mailer.Server, *mailer.Message, *Log, error) {
	password, passwordLog, err := c.params.Value(ctx, tc, cfg.SMTPPassword)
	if err != nil {
		return nil, nil, nil, err
	}
	from, _, err := c.params.Value(ctx, tc, cfg.FromEmail)
	if err != nil {
		return nil, nil, nil, err
	}
	to, _, err := c.params.Value(ctx, tc, cfg.ToEmail)
	if err != nil {
		return nil, nil, nil, err
	}
	username := httpx.Stringify(from)
	if cfg.SMTPUserID != nil {
		u, _, err := c.params.Value(ctx, tc, *cfg.SMTPUserID)
		if err != nil {
			return nil, nil, nil, err
		}
		username = httpx.Stringify(u)
	}

	recipients := Recipients(to)
	if len(recipients) == 0 {
		return nil, nil, nil, errx.Ef(errx.KindCompositionError, "no recipients resolved for email action %q", cfg.Name)
	}
	server := &mailer.Server{
		Host:     cfg.SMTPURL,
		Port:     cfg.SMTPPort,
		Username: username,
		Password: httpx.Stringify(password),
		TLS:      cfg.TLS,
	}
	msg := &mailer.Message{
		From:    httpx.Stringify(from),
		To:      recipients,
		Subject: cfg.Subject,
		HTML:    html,
	}
	log := &Log{
		URL: fmt.Sprintf("smtp://%s:%d", cfg.SMTPURL, cfg.SMTPPort),
		Body: map[string]any{
			"from":     msg.From,
			"to":       recipients,
			"subject":  msg.Subject,
			"password": passwordLog,
		},
	}
	return server, msg, log, nil
}

// Recipients flattens a resolved to_email value: a string (comma separated
// allowed) or a list of strings.
func Recipients(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []string:
		raw = t
	case []any:
		for _, x := range t {
			raw = append(raw, httpx.Stringify(x))
		}
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
