package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
)

// Context is the immutable per-invocation view actions resolve parameters
// against.
type Context struct {
	Bot            string
	SenderID       string
	UserMessage    string
	Intent         string
	Slots          map[string]any
	ChatLog        []map[string]any
	KeyVault       map[string]string
	LatestMessage  map[string]any
	KaironUserMsg  string
	SessionStarted string
}

// Map renders the context for script evaluation and expression templates.
func (c *Context) Map() map[string]any {
	chatLog := make([]any, len(c.ChatLog))
	for i, turn := range c.ChatLog {
		chatLog[i] = turn
	}
	slots := make(map[string]any, len(c.Slots))
	for k, v := range c.Slots {
		slots[k] = v
	}
	m := map[string]any{
		"bot":             c.Bot,
		"sender_id":       c.SenderID,
		"user_message":    c.UserMessage,
		"intent":          c.Intent,
		"slot":            slots,
		"chat_log":        chatLog,
		"latest_message":  c.LatestMessage,
		"kairon_user_msg": nilIfEmpty(c.KaironUserMsg),
		"session_started": nilIfEmpty(c.SessionStarted),
	}
	if c.KeyVault != nil {
		kv := make(map[string]any, len(c.KeyVault))
		for k, v := range c.KeyVault {
			kv[k] = v
		}
		m["key_vault"] = kv
	}
	return m
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// SecretSource supplies the decrypted key vault snapshot.
type SecretSource interface {
	Dump(ctx context.Context, bot string) (map[string]string, error)
}

// Builder derives a Context from a Tracker once per invocation.
type Builder struct {
	tracker *Tracker
	bot     string
	secrets SecretSource

	once sync.Once
	base *Context

	mu    sync.Mutex
	vault map[string]string
}

func NewBuilder(t *Tracker, bot string, secrets SecretSource) *Builder {
	return &Builder{tracker: t, bot: bot, secrets: secrets}
}

// Tracker returns the source tracker.
func (b *Builder) Tracker() *Tracker {
	return b.tracker
}

// Build returns the cached context, loading the key vault on first request
// when withKeyVault is set.
func (b *Builder) Build(ctx context.Context, withKeyVault bool) (*Context, error) {
	b.once.Do(func() { b.base = build(b.tracker, b.bot) })
	if !withKeyVault || b.secrets == nil {
		return b.base, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.vault == nil {
		kv, err := b.secrets.Dump(ctx, b.bot)
		if err != nil {
			return nil, fmt.Errorf("load key vault: %w", err)
		}
		b.vault = kv
	}
	withVault := *b.base
	withVault.KeyVault = b.vault
	return &withVault, nil
}

func build(t *Tracker, bot string) *Context {
	c := &Context{
		Bot:           bot,
		SenderID:      t.SenderID,
		UserMessage:   t.LatestMessage.Text,
		Intent:        t.IntentOfLatestMessage(),
		Slots:         t.CurrentSlotValues(),
		ChatLog:       ChatLog(t.Events),
		LatestMessage: latestMessage(t.LatestMessage),
	}
	if v, ok := t.EntityValue(model.UserMessageEntity); ok {
		if s, ok := v.(string); ok {
			c.KaironUserMsg = s
		}
	}
	for i := len(t.Events) - 1; i >= 0; i-- {
		if t.Events[i].Event == EventSessionStarted {
			c.SessionStarted = epochToISO(t.Events[i].Timestamp)
			break
		}
	}
	return c
}

// ChatLog normalises user and bot events into ordered {user|bot: content} turns.
func ChatLog(events []Event) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, e := range events {
		switch e.Event {
		case EventUser:
			out = append(out, map[string]any{"user": e.Text})
		case EventBot:
			if e.Text != "" {
				out = append(out, map[string]any{"bot": e.Text})
			} else if len(e.Data) > 0 {
				out = append(out, map[string]any{"bot": e.Data})
			}
		}
	}
	return out
}

func latestMessage(m Message) map[string]any {
	ranking := make([]any, 0, len(m.IntentRanking))
	for _, r := range m.IntentRanking {
		ranking = append(ranking, map[string]any{"name": r.Name, "confidence": r.Confidence})
	}
	entities := make([]any, 0, len(m.Entities))
	for _, e := range m.Entities {
		entities = append(entities, map[string]any{"entity": e.Entity, "value": e.Value})
	}
	return map[string]any{
		"text":           m.Text,
		"intent":         map[string]any{"name": m.Intent.Name, "confidence": m.Intent.Confidence},
		"intent_ranking": ranking,
		"entities":       entities,
	}
}

func epochToISO(ts float64) string {
	if ts <= 0 {
		return ""
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC().Format(time.RFC3339)
}
