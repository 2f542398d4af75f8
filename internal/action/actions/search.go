package actions

import (
	"context"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/params"
	"github.com/Chative-core-poc-v1/actionserver/internal/integrations"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

func (d *Deps) execGoogleSearch(ctx context.Context, inv *invocation) error {
	var cfg model.GoogleSearchConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.failWith(cfg.FailureResponse)
	inv.dispatch = cfg.DispatchResponse

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	query := params.UserMessage(tc)
	key, _, err := d.Params.Value(ctx, tc, cfg.APIKey)
	if err != nil {
		return err
	}

	var (
		results []integrations.SearchResult
		ex      *integrations.Exchange
	)
	if apiKey := httpx.Stringify(key); apiKey != "" {
		results, ex, err = d.Search.Google(ctx, apiKey, cfg.SearchEngineID, query, cfg.NumResults)
	} else {
		results, ex, err = d.Search.Web(ctx, query, "", cfg.NumResults)
	}
	return inv.searchResults(cfg.SetSlot, query, results, ex, err)
}

func (d *Deps) execWebSearch(ctx context.Context, inv *invocation) error {
	var cfg model.WebSearchConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.failWith(cfg.FailureResponse)
	inv.dispatch = cfg.DispatchResponse

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	query := params.UserMessage(tc)
	results, ex, err := d.Search.Web(ctx, query, cfg.Website, cfg.TopN)
	return inv.searchResults(cfg.SetSlot, query, results, ex, err)
}

// searchResults records the exchange and formats hits. No hits keeps the failure reply.
func (inv *invocation) searchResults(slot, query string, results []integrations.SearchResult, ex *integrations.Exchange, err error) error {
	inv.log.Request = map[string]any{"query": query}
	if ex != nil {
		inv.log.Response = ex.Response
	}
	if err != nil {
		return err
	}
	if len(results) > 0 {
		inv.response = integrations.FormatHTML(results)
	}
	if slot != "" {
		inv.slots[slot] = inv.response
	}
	return nil
}
