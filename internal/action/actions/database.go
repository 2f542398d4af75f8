package actions

import (
	"context"
	"maps"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/params"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/response"
	"github.com/Chative-core-poc-v1/actionserver/internal/action/tracker"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/vectordb"
)

// Payload value sources of a database query.
const (
	fromSlot        = "from_slot"
	fromUserMessage = "from_user_message"
	fromValue       = "from_value"

	defaultQueryLimit = 10
)

func (d *Deps) execDatabase(ctx context.Context, inv *invocation) error {
	var cfg model.DatabaseActionConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.failWith(cfg.FailureResponse)
	inv.dispatch = cfg.Response.Dispatch

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	if d.VectorDB == nil {
		return errx.Ef(errx.KindIntegrationFailure, "no vector db configured")
	}
	db, err := d.VectorDB(cfg.DBType)
	if err != nil {
		return err
	}
	searcher := vectordb.NewSearcher(db, d.Embedder)
	collection := vectordb.CollectionName(inv.bot, cfg.Collection)
	inv.log.URL = collection

	requests := make([]any, 0, len(cfg.Payload))
	results := make([]any, 0, len(cfg.Payload))
	for _, q := range cfg.Payload {
		value, err := queryValue(q, tc)
		if err != nil {
			return err
		}
		requests = append(requests, map[string]any{"query_type": q.QueryType, "value": value})
		inv.log.Request = requests
		res, err := searcher.Query(ctx, collection, q.QueryType, value, defaultQueryLimit)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	var data any = results
	if len(results) == 1 {
		data = results[0]
	}
	inv.log.Response = data

	in := response.Input{Data: data, Context: tc.Map()}
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

func queryValue(q model.DatabaseQuery, tc *tracker.Context) (any, error) {
	switch q.Type {
	case fromSlot:
		name, _ := q.Value.(string)
		return tc.Slots[name], nil
	case fromUserMessage:
		return params.UserMessage(tc), nil
	case fromValue, "":
		return q.Value, nil
	default:
		return nil, errx.Ef(errx.KindCompositionError, "unsupported payload type %q", q.Type)
	}
}
