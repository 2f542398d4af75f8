// Package server exposes the action runtime over HTTP: the webhook the
// dialog engine calls, the scheduler dispatch hook and callback URLs.
package server

import (
	"context"
	"fmt"
	"sort"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/actions"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/audit"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/registry"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

type (
	// SlotEvent is one slot update handed back to the dialog engine.
	SlotEvent struct {
		Event string `json:"event"`
		Name  string `json:"name"`
		Value any    `json:"value"`
	}

	// Dispatcher resolves an action by name and runs it for one tracker.
	Dispatcher struct {
		registry *registry.Registry
		audit    audit.Writer
	}
)

func NewDispatcher(r *registry.Registry, w audit.Writer) *Dispatcher {
	return &Dispatcher{registry: r, audit: w}
}

// ProcessAction runs name and converts its slot delta into slot events.
// Failures before the action starts are audited here; failures inside the
// action were already contained and audited by the action itself.
func (d *Dispatcher) ProcessAction(ctx context.Context, disp model.Dispatcher, t *tracker.Tracker, domain map[string]any, name string) []SlotEvent {
	bot := t.Bot()
	if bot == "" {
		d.fail(ctx, t, bot, name, "", fmt.Errorf("bot id not found in tracker slots"))
		return []SlotEvent{}
	}

	a, err := d.registry.Instance(ctx, bot, name)
	if err != nil {
		d.fail(ctx, t, bot, name, "", err)
		return []SlotEvent{}
	}

	slots, err := d.safeExecute(ctx, a, disp, t, domain)
	if err != nil {
		logx.Warn().Err(err).Str("bot", bot).Str("action", name).Str("type", string(a.Type())).Msg("action ended in failure")
	}
	if slots == nil {
		d.fail(ctx, t, bot, name, a.Type(), err)
		return []SlotEvent{}
	}
	return SlotEvents(slots)
}

// safeExecute reports a nil slot map when the action escaped its envelope.
func (d *Dispatcher) safeExecute(ctx context.Context, a registry.Action, disp model.Dispatcher, t *tracker.Tracker, domain map[string]any) (slots map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slots, err = nil, fmt.Errorf("action %s panicked: %v", a.Name(), r)
		}
	}()
	return a.Execute(ctx, disp, t, domain)
}

func (d *Dispatcher) fail(ctx context.Context, t *tracker.Tracker, bot, name string, typ model.ActionType, err error) {
	logx.Error().Err(err).Str("bot", bot).Str("action", name).Msg("failed to process action")
	if d.audit == nil {
		return
	}
	rec := &model.ActionServerLog{
		Type:        typ,
		Action:      name,
		Bot:         bot,
		Sender:      t.SenderID,
		Intent:      t.IntentOfLatestMessage(),
		UserMsg:     t.LatestMessage.Text,
		Status:      model.StatusFailure,
		TriggerInfo: actions.TriggerInfo(ctx),
	}
	if err != nil {
		rec.Exception = err.Error()
	}
	d.audit.Write(ctx, rec)
}

// SlotEvents orders slots by name so responses are deterministic.
func SlotEvents(slots map[string]any) []SlotEvent {
	names := make([]string, 0, len(slots))
	for k := range slots {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]SlotEvent, 0, len(names))
	for _, n := range names {
		out = append(out, SlotEvent{Event: tracker.EventSlot, Name: n, Value: slots[n]})
	}
	return out
}
