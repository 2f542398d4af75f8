package actions

import (
	"context"
	"maps"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/response"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
)

func (d *Deps) execHTTP(ctx context.Context, inv *invocation) error {
	var cfg model.HTTPActionConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.dispatch = cfg.Response.Dispatch

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	req, reqLog, err := d.Requests.HTTP(ctx, tc, &cfg)
	if err != nil {
		return err
	}
	inv.log.URL = reqLog.URL
	inv.log.Headers = reqLog.Headers
	inv.log.Request = reqLog.Body

	resp, err := d.HTTP.Do(ctx, *req)
	if err != nil {
		return errx.E(errx.KindUpstreamFailure, "failed to execute the url: "+reqLog.URL, err)
	}
	inv.log.Response = resp.Body

	script := cfg.Response.EvaluationType == model.EvaluationScript
	if !resp.OK() && !script {
		return errx.Ef(errx.KindUpstreamFailure, "got non-200 status code %d from %s", resp.StatusCode, reqLog.URL)
	}

	in := response.Input{Data: resp.Body, Context: tc.Map(), Headers: resp.Headers, StatusCode: resp.StatusCode}
	res, err := d.Responses.Compose(ctx, cfg.Response, in)
	if err != nil {
		return err
	}
	inv.merge(res.Slots)
	maps.Copy(inv.slots, d.Responses.Slots(ctx, cfg.SetSlots, in))
	inv.dispatchType = res.Type
	inv.response = res.BotResponse
	return nil
}
