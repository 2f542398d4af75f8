package actions

import (
	"context"
	"strings"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

const callbackURLToken = "{callback_url}"

func (d *Deps) execCallback(ctx context.Context, inv *invocation) error {
	var cfg model.CallbackActionConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.dispatch = cfg.DispatchBotResponse

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	meta, logged, err := d.Params.Resolve(ctx, tc, cfg.MetadataList)
	if err != nil {
		return err
	}
	inv.log.Request = logged
	if d.Callbacks == nil {
		return errx.Ef(errx.KindIntegrationFailure, "callback service is not configured")
	}
	data, err := d.Callbacks.Create(ctx, inv.bot, inv.name, cfg.CallbackName, tc.SenderID, meta)
	if err != nil {
		return err
	}

	inv.log.URL = data.CallbackURL
	inv.extra("callback_url", data.CallbackURL)
	if cfg.DynamicURLSlotName != "" {
		inv.slots[cfg.DynamicURLSlotName] = data.CallbackURL
		inv.extra("dynamic_url_slot_name", cfg.DynamicURLSlotName)
	}
	inv.response = strings.ReplaceAll(cfg.BotResponse, callbackURLToken, data.CallbackURL)
	return nil
}
