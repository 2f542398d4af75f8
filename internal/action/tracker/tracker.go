// Package tracker holds the read-only conversation snapshot supplied by the
// dialog engine and the per-invocation context derived from it.
package tracker

import (
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
)

// Event types that matter to the runtime.
const (
	EventUser           = "user"
	EventBot            = "bot"
	EventAction         = "action"
	EventSlot           = "slot"
	EventSessionStarted = "session_started"
)

type (
	// Tracker is the conversation state as posted by the dialog engine. The
	// runtime never mutates it; actions return slot deltas instead.
	Tracker struct {
		SenderID         string         `json:"sender_id"`
		Slots            map[string]any `json:"slots"`
		LatestMessage    Message        `json:"latest_message"`
		Events           []Event        `json:"events"`
		FollowupAction   string         `json:"followup_action,omitempty"`
		ActiveLoop       map[string]any `json:"active_loop,omitempty"`
		LatestActionName string         `json:"latest_action_name,omitempty"`
	}

	Message struct {
		Text          string   `json:"text"`
		Intent        Intent   `json:"intent"`
		IntentRanking []Intent `json:"intent_ranking,omitempty"`
		Entities      []Entity `json:"entities,omitempty"`
	}

	Intent struct {
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence"`
	}

	Entity struct {
		Entity string `json:"entity"`
		Value  any    `json:"value"`
	}

	Event struct {
		Event     string         `json:"event"`
		Timestamp float64        `json:"timestamp,omitempty"`
		Text      string         `json:"text,omitempty"`
		Name      string         `json:"name,omitempty"`
		Value     any            `json:"value,omitempty"`
		Data      map[string]any `json:"data,omitempty"`
	}
)

// CurrentSlotValues returns a copy of the slot map.
func (t *Tracker) CurrentSlotValues() map[string]any {
	out := make(map[string]any, len(t.Slots))
	for k, v := range t.Slots {
		out[k] = v
	}
	return out
}

// GetSlot returns a slot value or nil.
func (t *Tracker) GetSlot(name string) any {
	if t.Slots == nil {
		return nil
	}
	return t.Slots[name]
}

// SlotString returns a slot value when it is a string.
func (t *Tracker) SlotString(name string) string {
	s, _ := t.GetSlot(name).(string)
	return s
}

// Bot returns the tenant id carried in the bot slot.
func (t *Tracker) Bot() string {
	return t.SlotString(model.BotSlot)
}

// IntentOfLatestMessage returns the top intent of the latest user message.
func (t *Tracker) IntentOfLatestMessage() string {
	return t.LatestMessage.Intent.Name
}

// RequestedSlot returns the slot the active form is asking for.
func (t *Tracker) RequestedSlot() string {
	return t.SlotString(model.RequestedSlot)
}

// EntityValue returns the first entity value with the given name.
func (t *Tracker) EntityValue(name string) (any, bool) {
	for _, e := range t.LatestMessage.Entities {
		if e.Entity == name {
			return e.Value, true
		}
	}
	return nil, false
}
