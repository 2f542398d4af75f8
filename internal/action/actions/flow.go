package actions

import (
	"context"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/integrations"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

// WhatsAppAPIKey is the key vault entry holding the bot's BSP key.
const WhatsAppAPIKey = "WHATSAPP_API_KEY"

func (d *Deps) execFlow(ctx context.Context, inv *invocation) error {
	var cfg model.FlowConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	flowID, _, err := d.Params.Value(ctx, tc, cfg.FlowID)
	if err != nil {
		return err
	}
	phone, _, err := d.Params.Value(ctx, tc, cfg.RecipientPhone)
	if err != nil {
		return err
	}
	apiKey, _, err := d.Vault.Get(ctx, inv.bot, WhatsAppAPIKey, true)
	if err != nil {
		return err
	}

	ex, err := d.WhatsApp.SendFlow(ctx, apiKey, integrations.FlowMessage{
		RecipientPhone: httpx.Stringify(phone),
		FlowID:         httpx.Stringify(flowID),
		Header:         render(cfg.Header, tc),
		Body:           render(cfg.Body, tc),
		Footer:         render(cfg.Footer, tc),
		Mode:           cfg.Mode,
		FlowAction:     cfg.FlowAction,
		FlowToken:      cfg.FlowToken,
		FlowCTA:        cfg.FlowCTA,
		InitialScreen:  cfg.InitialScreen,
	})
	inv.exchange(ex)
	if err != nil {
		return err
	}
	inv.response = render(cfg.Response, tc)
	return nil
}
