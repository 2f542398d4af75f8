// Package response composes bot replies and slot values from an upstream
// result, either by template interpolation or through the script evaluator.
package response

import (
	"context"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// WholeResponse expands to the complete upstream payload.
const WholeResponse = "RESPONSE"

var placeholder = regexp.MustCompile(`\$\{([^{}]+)\}`)

type (
	// Input is everything a template or script may reference.
	Input struct {
		Data       any
		Context    map[string]any
		Headers    map[string]string
		StatusCode int
	}

	// Result is a composed reply.
	Result struct {
		BotResponse any
		Slots       map[string]any
		Type        string
	}

	Composer struct {
		eval evaluator.Evaluator
	}
)

func New(eval evaluator.Evaluator) *Composer {
	return &Composer{eval: eval}
}

// Compose builds the bot reply described by cfg.
func (c *Composer) Compose(ctx context.Context, cfg model.ResponseConfig, in Input) (*Result, error) {
	dispatchType := cfg.DispatchType
	if dispatchType == "" {
		dispatchType = model.DispatchText
	}
	if cfg.EvaluationType == model.EvaluationScript {
		res, err := c.Script(ctx, cfg.Value, in)
		if err != nil {
			return nil, err
		}
		if res.Type != "" {
			dispatchType = res.Type
		}
		return &Result{BotResponse: res.BotResponse, Slots: res.Slots, Type: dispatchType}, nil
	}
	value, err := Expression(cfg.Value, in.Data, in.Context)
	if err != nil {
		return nil, err
	}
	return &Result{BotResponse: value, Slots: map[string]any{}, Type: dispatchType}, nil
}

// Script runs source through the evaluator with the upstream result in scope.
func (c *Composer) Script(ctx context.Context, source string, in Input) (*evaluator.Result, error) {
	if c.eval == nil {
		return nil, errx.Ef(errx.KindScriptEvalFailure, "no evaluator configured")
	}
	headers := make(map[string]any, len(in.Headers))
	for k, v := range in.Headers {
		headers[k] = v
	}
	return c.eval.Evaluate(ctx, source, map[string]any{
		"data":             in.Data,
		"context":          in.Context,
		"response_headers": headers,
		"http_status_code": in.StatusCode,
	})
}

// Slots evaluates every set_slots entry on its own; a failing entry sets
// its slot to nil without affecting the others.
func (c *Composer) Slots(ctx context.Context, specs []model.SetSlot, in Input) map[string]any {
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		var (
			value any
			err   error
		)
		if spec.EvaluationType == model.EvaluationScript {
			var res *evaluator.Result
			if res, err = c.Script(ctx, spec.Value, in); err == nil {
				value = res.BotResponse
			}
		} else {
			value, err = Expression(spec.Value, in.Data, in.Context)
		}
		if err != nil {
			logx.Warn().Err(err).Str("slot", spec.Name).Msg("slot evaluation failed")
			value = nil
		}
		out[spec.Name] = value
	}
	return out
}

// Expression interpolates ${data.path} and ${context.path} placeholders.
// A template that is a single placeholder yields the raw value; an empty
// template yields data unchanged.
func Expression(template string, data any, ctxMap map[string]any) (any, error) {
	if strings.TrimSpace(template) == "" {
		return data, nil
	}
	matches := placeholder.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	root, err := httpx.Marshal(map[string]any{"data": data, "context": ctxMap})
	if err != nil {
		return nil, errx.E(errx.KindCompositionError, "unable to encode response for evaluation", err)
	}
	lookup := func(path string) (any, string, error) {
		path = strings.TrimSpace(path)
		if path == WholeResponse {
			return data, httpx.Stringify(data), nil
		}
		res := gjson.GetBytes(root, path)
		if !res.Exists() {
			return nil, "", errx.Ef(errx.KindCompositionError, "unable to retrieve value for key %q from response", path)
		}
		if res.Type == gjson.String {
			return res.String(), res.String(), nil
		}
		return res.Value(), res.Raw, nil
	}

	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(template) {
		v, _, err := lookup(template[matches[0][2]:matches[0][3]])
		return v, err
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(template[last:m[0]])
		_, s, err := lookup(template[m[2]:m[3]])
		if err != nil {
			return nil, err
		}
		b.WriteString(s)
		last = m[1]
	}
	b.WriteString(template[last:])
	return b.String(), nil
}

// Text renders a composed reply for text dispatch.
func Text(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return httpx.Stringify(v)
}

// AsJSON converts a reply into a value suitable for json dispatch.
func AsJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var out any
	if err := httpx.Unmarshal([]byte(s), &out); err != nil {
		return s
	}
	return out
}
