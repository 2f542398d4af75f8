package actions

import (
	"context"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

// Slot-set rule types.
const (
	slotFromValue = "from_value"
	slotReset     = "reset_slot"
	slotFromSlot  = "slot"
)

func (d *Deps) execSlotSet(ctx context.Context, inv *invocation) error {
	inv.dispatch = false
	inv.mirror = false

	var cfg model.SlotSetConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	out := make(map[string]any, len(cfg.SetSlots))
	for _, rule := range cfg.SetSlots {
		switch rule.Type {
		case slotFromValue:
			out[rule.Name] = rule.Value
		case slotReset:
			out[rule.Name] = nil
		case slotFromSlot:
			src, _ := rule.Value.(string)
			out[rule.Name] = inv.tracker.GetSlot(src)
		default:
			return errx.Ef(errx.KindCompositionError, "unknown slot set type %q for slot %q", rule.Type, rule.Name)
		}
	}
	for k, v := range out {
		inv.slots[k] = v
	}
	inv.log.Response = out
	inv.response = nil
	return nil
}

// execBotResponse utters a domain template directly.
func (d *Deps) execBotResponse(_ context.Context, inv *invocation) error {
	inv.dispatch = false
	inv.mirror = false
	inv.dispatcher.UtterTemplate(inv.name)
	inv.response = inv.name
	return nil
}
