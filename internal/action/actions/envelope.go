package actions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/registry"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/response"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

type (
	body func(ctx context.Context, inv *invocation) error

	action struct {
		deps *Deps
		typ  model.ActionType
		bot  string
		name string
		body body
	}

	// invocation is the mutable state of one action run. Bodies set the
	// reply and slots; the envelope dispatches, audits and returns them.
	invocation struct {
		deps       *Deps
		typ        model.ActionType
		bot        string
		name       string
		tracker    *tracker.Tracker
		domain     map[string]any
		dispatcher model.Dispatcher
		builder    *tracker.Builder
		log        *model.ActionServerLog
		logger     zerolog.Logger

		response     any
		dispatch     bool
		dispatchType string
		slots        map[string]any
		// mirror copies response into kairon_action_response.
		mirror bool
	}

	triggerKey struct{}
)

var _ registry.Action = (*action)(nil)

func (a *action) Name() string           { return a.name }
func (a *action) Type() model.ActionType { return a.typ }

func (a *action) Execute(ctx context.Context, d model.Dispatcher, t *tracker.Tracker, domain map[string]any) (map[string]any, error) {
	return a.deps.run(ctx, d, t, domain, a.typ, a.bot, a.name, a.body)
}

// WithTriggerInfo attaches the caller's trigger to every audit record written under ctx.
func WithTriggerInfo(ctx context.Context, ti *model.TriggerInfo) context.Context {
	return context.WithValue(ctx, triggerKey{}, ti)
}

// TriggerInfo returns the trigger attached with WithTriggerInfo, if any.
func TriggerInfo(ctx context.Context) *model.TriggerInfo {
	ti, _ := ctx.Value(triggerKey{}).(*model.TriggerInfo)
	return ti
}

func (d *Deps) run(ctx context.Context, disp model.Dispatcher, t *tracker.Tracker, domain map[string]any,
	typ model.ActionType, bot, name string, b body) (map[string]any, error) {
	if disp == nil {
		disp = model.Discard
	}
	var secrets tracker.SecretSource
	if d.Vault != nil {
		secrets = d.Vault
	}
	inv := &invocation{
		deps:         d,
		typ:          typ,
		bot:          bot,
		name:         name,
		tracker:      t,
		domain:       domain,
		dispatcher:   disp,
		builder:      tracker.NewBuilder(t, bot, secrets),
		logger:       logx.With(bot, name),
		response:     model.DefaultFailureResponse,
		dispatch:     true,
		dispatchType: model.DispatchText,
		slots:        make(map[string]any),
		mirror:       true,
		log: &model.ActionServerLog{
			Type:        typ,
			Action:      name,
			Bot:         bot,
			Sender:      t.SenderID,
			Intent:      t.IntentOfLatestMessage(),
			UserMsg:     t.LatestMessage.Text,
			TriggerInfo: TriggerInfo(ctx),
		},
	}

	err := contain(func() error { return b(ctx, inv) })
	if err != nil {
		inv.log.Status = model.StatusFailure
		inv.log.Exception = err.Error()
		inv.logger.Error().Err(err).Str("type", string(typ)).Msg("action failed")
	} else {
		inv.log.Status = model.StatusSuccess
		inv.logger.Debug().Str("type", string(typ)).Msg("action executed")
	}

	if inv.dispatch {
		inv.utter()
	}
	inv.log.BotResponse = inv.response
	if d.Audit != nil {
		d.Audit.Write(ctx, inv.log)
	}
	if inv.mirror {
		inv.slots[model.ResponseSlot] = inv.response
	}
	return inv.slots, err
}

func contain(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
	}()
	return fn()
}

func (inv *invocation) utter() {
	if inv.response == nil {
		return
	}
	if inv.dispatchType == model.DispatchJSON {
		inv.dispatcher.UtterJSON(response.AsJSON(inv.response))
		return
	}
	if text := response.Text(inv.response); text != "" {
		inv.dispatcher.UtterText(text)
	}
}

// load reads this action's config.
func (inv *invocation) load(ctx context.Context, out any) error {
	return inv.deps.Configs.Load(ctx, inv.typ, inv.bot, inv.name, out)
}

// context builds the tracker context including the key vault.
func (inv *invocation) context(ctx context.Context) (*tracker.Context, error) {
	return inv.builder.Build(ctx, true)
}

// failWith sets the reply used if the body fails from here on.
func (inv *invocation) failWith(msg string) {
	if msg == "" {
		msg = model.DefaultFailureResponse
	}
	inv.response = msg
}

// merge copies script-returned slots, skipping reserved names.
func (inv *invocation) merge(slots map[string]any) {
	for k, v := range slots {
		if _, reserved := model.ReservedSlots[k]; reserved {
			continue
		}
		inv.slots[k] = v
	}
}

func (inv *invocation) extra(key string, value any) {
	if inv.log.Extra == nil {
		inv.log.Extra = make(map[string]any)
	}
	inv.log.Extra[key] = value
}
