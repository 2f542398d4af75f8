package actions

import (
	"context"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

func (d *Deps) execPyscript(ctx context.Context, inv *invocation) error {
	var cfg model.PyscriptConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.dispatch = cfg.DispatchResponse

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	if d.Eval == nil {
		return errx.Ef(errx.KindScriptEvalFailure, "no evaluator configured")
	}
	res, err := d.Eval.Evaluate(ctx, cfg.SourceCode, tc.Map())
	if err != nil {
		return err
	}
	inv.log.Response = map[string]any{"bot_response": res.BotResponse, "slots": res.Slots, "type": res.Type}
	inv.merge(res.Slots)
	if res.Type != "" {
		inv.dispatchType = res.Type
	}
	inv.response = res.BotResponse
	return nil
}
