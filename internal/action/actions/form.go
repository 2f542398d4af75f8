package actions

import (
	"context"

	"github.com/expr-lang/expr"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

// FormState is the validation state of the requested slot.
type FormState string

const (
	FormPending  FormState = "pending_validation"
	FormAwaiting FormState = "awaiting_value"
	FormValid    FormState = "valid"
	FormInvalid  FormState = "invalid"
)

// Value source types for pre-validation fetch and post-validation mapping.
const (
	sourceCustom = "custom"
	sourceSlot   = "slot"
	sourceAction = "action"
)

func (d *Deps) execFormValidation(ctx context.Context, inv *invocation) error {
	inv.dispatch = false
	inv.mirror = false
	inv.response = nil

	slot := inv.tracker.RequestedSlot()
	if slot == "" {
		return nil
	}
	state := FormPending
	defer func() { inv.extra("validation", map[string]any{"slot": slot, "state": string(state)}) }()

	var cfgs []model.FormValidationConfig
	if err := d.Configs.FindAll(ctx, model.CollectionFormValidation, inv.bot, bson.M{"name": inv.name, "slot": slot}, &cfgs); err != nil {
		return err
	}
	value := inv.tracker.GetSlot(slot)
	if len(cfgs) == 0 {
		inv.slots[slot] = value
		state = FormValid
		return nil
	}
	cfg := cfgs[0]

	if cfg.PreValidation != nil {
		v, err := d.slotSource(ctx, inv, *cfg.PreValidation, slot, value)
		if err != nil {
			return err
		}
		value = v
	}
	if value == nil {
		state = FormAwaiting
		inv.slots[slot] = nil
		return nil
	}

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	valid := true
	if cfg.ValidationSemantic != "" {
		env := map[string]any{
			"slot":    value,
			"value":   value,
			"slots":   tc.Slots,
			"context": tc.Map(),
		}
		ok, err := Validate(cfg.ValidationSemantic, env)
		if err != nil {
			inv.logger.Warn().Err(err).Str("slot", slot).Msg("validation expression failed")
		}
		valid = ok
	}

	if !valid {
		state = FormInvalid
		inv.slots[slot] = nil
		if cfg.InvalidResponse != "" {
			inv.response, inv.dispatch = cfg.InvalidResponse, true
		}
		return nil
	}

	state = FormValid
	if cfg.SlotSet != nil {
		v, err := d.slotSource(ctx, inv, *cfg.SlotSet, slot, value)
		if err != nil {
			return err
		}
		value = v
	}
	inv.slots[slot] = value
	if cfg.ValidResponse != "" {
		inv.response, inv.dispatch = cfg.ValidResponse, true
	}
	return nil
}

// Validate evaluates a boolean validation expression against env.
func Validate(semantic string, env map[string]any) (bool, error) {
	program, err := expr.Compile(semantic, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, errx.E(errx.KindCompositionError, "invalid validation expression", err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false, errx.E(errx.KindCompositionError, "validation expression failed", err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// slotSource resolves a custom literal, another slot, or the slot value
// produced by running another action. An empty type keeps current.
func (d *Deps) slotSource(ctx context.Context, inv *invocation, src model.SlotValueSource, slot string, current any) (any, error) {
	switch src.Type {
	case sourceCustom:
		return src.Value, nil
	case sourceSlot:
		name, _ := src.Value.(string)
		return inv.tracker.GetSlot(name), nil
	case sourceAction:
		name, _ := src.Value.(string)
		child, err := d.Registry.Instance(ctx, inv.bot, name)
		if err != nil {
			return nil, err
		}
		slots, err := child.Execute(ctx, model.Discard, inv.tracker, inv.domain)
		if err != nil {
			return nil, err
		}
		if v, ok := slots[slot]; ok {
			return v, nil
		}
		return current, nil
	case "":
		return current, nil
	default:
		return nil, errx.Ef(errx.KindCompositionError, "unknown slot value source %q", src.Type)
	}
}
