// Package audit appends one ActionServerLog per action invocation.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/keyvault"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// Writer records invocations. Writes are best-effort and never fail the caller.
type Writer interface {
	Write(ctx context.Context, rec *model.ActionServerLog)
}

type StoreWriter struct {
	store store.Store
	now   func() time.Time
}

func NewStoreWriter(s store.Store) *StoreWriter {
	return &StoreWriter{store: s, now: time.Now}
}

func (w *StoreWriter) Write(ctx context.Context, rec *model.ActionServerLog) {
	if rec == nil {
		return
	}
	if rec.Status == "" {
		rec.Status = model.StatusFailure
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.now().UTC()
	}
	if _, err := w.store.Insert(context.WithoutCancel(ctx), model.CollectionActionLogs, rec); err != nil {
		logx.Error().Err(err).Str("bot", rec.Bot).Str("action", rec.Action).Msg("failed to write action log")
	}
}

var _ Writer = (*StoreWriter)(nil)

// Mask returns a copy of payload where every value stored under one of keys,
// at any depth, is masked and every binary blob is replaced by a size marker.
func Mask(payload any, keys ...string) any {
	payload = stripBinary(payload)
	if len(keys) == 0 || payload == nil {
		return payload
	}
	raw, err := httpx.Marshal(payload)
	if err != nil {
		return payload
	}
	secret := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		secret[k] = struct{}{}
	}
	var paths []string
	collect(gjson.ParseBytes(raw), "", secret, &paths)
	if len(paths) == 0 {
		return payload
	}
	for _, p := range paths {
		v := gjson.GetBytes(raw, p)
		if masked, err := sjson.SetBytes(raw, p, keyvault.Mask(valueString(v))); err == nil {
			raw = masked
		}
	}
	var out any
	if err := httpx.Unmarshal(raw, &out); err != nil {
		return payload
	}
	return out
}

func collect(node gjson.Result, prefix string, secret map[string]struct{}, paths *[]string) {
	if !node.IsObject() && !node.IsArray() {
		return
	}
	isArray := node.IsArray()
	i := 0
	node.ForEach(func(key, value gjson.Result) bool {
		var seg string
		if isArray {
			seg = fmt.Sprint(i)
			i++
		} else {
			seg = escape(key.String())
		}
		path := seg
		if prefix != "" {
			path = prefix + "." + seg
		}
		if _, ok := secret[key.String()]; ok && !isArray && value.Type != gjson.Null {
			*paths = append(*paths, path)
			return true
		}
		collect(value, path, secret, paths)
		return true
	})
}

func valueString(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}

var pathEscaper = strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)

func escape(key string) string {
	return pathEscaper.Replace(key)
}

func stripBinary(v any) any {
	switch t := v.(type) {
	case []byte:
		return fmt.Sprintf("<binary:%d bytes>", len(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = stripBinary(x)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = stripBinary(x)
		}
		return out
	default:
		return v
	}
}
