// Package params resolves declared action parameters against the tracker
// context and the key vault.
package params

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/keyvault"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

type (
	// SecretGetter reads a decrypted key vault value.
	SecretGetter interface {
		Get(ctx context.Context, bot, key string, raiseOnMissing bool) (string, bool, error)
	}

	// Decrypter decrypts encrypted literal values.
	Decrypter interface {
		Decrypt(token string) (string, error)
	}

	// Resolver turns ParameterSpecs into concrete values plus a masked copy
	// safe for audit records.
	Resolver struct {
		secrets SecretGetter
		dec     Decrypter
	}
)

func NewResolver(secrets SecretGetter, dec Decrypter) *Resolver {
	return &Resolver{secrets: secrets, dec: dec}
}

// Resolve resolves every spec. values[key] is the concrete value and
// logged[key] the value as it may appear in logs.
func (r *Resolver) Resolve(ctx context.Context, tc *tracker.Context, specs []model.ParameterSpec) (values, logged map[string]any, err error) {
	values = make(map[string]any, len(specs))
	logged = make(map[string]any, len(specs))
	for _, spec := range specs {
		v, l, err := r.Value(ctx, tc, spec)
		if err != nil {
			return nil, nil, err
		}
		values[spec.Key] = v
		logged[spec.Key] = l
	}
	return values, logged, nil
}

// Value resolves a single spec.
func (r *Resolver) Value(ctx context.Context, tc *tracker.Context, spec model.ParameterSpec) (value, logged any, err error) {
	switch spec.Source {
	case model.SourceSenderID:
		value = tc.SenderID
	case model.SourceSlot:
		value = tc.Slots[spec.Value]
	case model.SourceUserMessage:
		value = UserMessage(tc)
	case model.SourceIntent:
		value = tc.Intent
	case model.SourceChatLog:
		conversation := make([]any, len(tc.ChatLog))
		for i, turn := range tc.ChatLog {
			conversation[i] = turn
		}
		value = map[string]any{
			"sender_id":       tc.SenderID,
			"session_started": tc.SessionStarted,
			"conversation":    conversation,
		}
		return value, value, nil
	case model.SourceKeyVault:
		if tc.KeyVault != nil {
			if s, ok := tc.KeyVault[spec.Value]; ok {
				return s, keyvault.Mask(s), nil
			}
		}
		if r.secrets == nil {
			return nil, nil, nil
		}
		s, ok, err := r.secrets.Get(ctx, tc.Bot, spec.Value, false)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, nil
		}
		return s, keyvault.Mask(s), nil
	case model.SourceLiteral, "":
		value = spec.Value
		if spec.Encrypt && spec.Value != "" {
			if r.dec == nil {
				return nil, nil, errx.Ef(errx.KindMissingSecret, "no cipher configured to decrypt parameter %q", spec.Key)
			}
			plain, err := r.dec.Decrypt(spec.Value)
			if err != nil {
				return nil, nil, errx.E(errx.KindMissingSecret, fmt.Sprintf("unable to decrypt parameter %q", spec.Key), err)
			}
			value = plain
		}
	default:
		return nil, nil, errx.Ef(errx.KindCompositionError, "unknown parameter source %q for %q", spec.Source, spec.Key)
	}

	logged = value
	if spec.Encrypt && value != nil {
		logged = keyvault.Mask(httpx.Stringify(value))
	}
	return value, logged, nil
}

// UserMessage returns the latest user text. A slash-encoded intent is
// replaced by the original text carried in kairon_user_msg when present.
func UserMessage(tc *tracker.Context) string {
	if strings.HasPrefix(tc.UserMessage, "/") && tc.KaironUserMsg != "" {
		return tc.KaironUserMsg
	}
	return tc.UserMessage
}

// Alternatives are tried left to right, so a reserved name wins over a longer
// slot name sharing its prefix: $SENDER_IDx is the sender id followed by "x".
var placeholder = regexp.MustCompile(`\$\$[A-Za-z_][A-Za-z0-9_]*|\$(?:SENDER_ID|INTENT|USER_MESSAGE)|\$[A-Za-z_][A-Za-z0-9_]*`)

// SubstituteURL replaces $$<key vault key>, then the reserved $SENDER_ID,
// $INTENT and $USER_MESSAGE, then $<slot> tokens. Substituted values are not
// scanned again. Unresolved tokens become empty.
func (r *Resolver) SubstituteURL(ctx context.Context, tc *tracker.Context, template string) (string, error) {
	var firstErr error
	out := placeholder.ReplaceAllStringFunc(template, func(tok string) string {
		if strings.HasPrefix(tok, "$$") {
			key := tok[2:]
			if tc.KeyVault != nil {
				if v, ok := tc.KeyVault[key]; ok {
					return v
				}
			}
			if r.secrets == nil {
				return ""
			}
			v, _, err := r.secrets.Get(ctx, tc.Bot, key, false)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			return v
		}
		switch name := tok[1:]; name {
		case "SENDER_ID":
			return tc.SenderID
		case "INTENT":
			return tc.Intent
		case "USER_MESSAGE":
			return UserMessage(tc)
		default:
			return httpx.Stringify(tc.Slots[name])
		}
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
