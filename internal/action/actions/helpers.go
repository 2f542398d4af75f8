package actions

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/response"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

// render interpolates ${context.…} placeholders of template against tc.
// A template that cannot be rendered is returned unchanged.
func render(template string, tc *tracker.Context) string {
	v, err := response.Expression(template, nil, tc.Map())
	if err != nil {
		return template
	}
	return response.Text(v)
}

// transcript renders the chat log as "role: text" lines.
func transcript(tc *tracker.Context) string {
	var b strings.Builder
	for _, turn := range tc.ChatLog {
		for role, text := range turn {
			fmt.Fprintf(&b, "%s: %s\n", role, httpx.Stringify(text))
		}
	}
	return strings.TrimSpace(b.String())
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
