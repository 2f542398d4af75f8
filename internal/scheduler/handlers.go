package scheduler

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// FlowTrigger starts a dialog flow for a user.
type FlowTrigger interface {
	TriggerFlow(ctx context.Context, bot, senderID, flowName string, slots map[string]any) error
}

// PyscriptHandler runs data.source_code with data.predefined_objects.
func PyscriptHandler(eval evaluator.Evaluator) Handler {
	return func(ctx context.Context, job Job) error {
		src, _ := job.JobState.Data["source_code"].(string)
		if src == "" {
			return errx.Ef(errx.KindScheduleFailure, "job %s has no source_code", job.ID)
		}
		pre := asMap(job.JobState.Data["predefined_objects"])
		res, err := eval.Evaluate(ctx, src, pre)
		if err != nil {
			return err
		}
		logx.Info().Str("event_id", job.ID).Interface("bot_response", res.BotResponse).Msg("scheduled script executed")
		return nil
	}
}

// FlowHandler starts data.flow_name for data.predefined_objects.sender_id.
func FlowHandler(flows FlowTrigger) Handler {
	return func(ctx context.Context, job Job) error {
		flow, _ := job.JobState.Data["flow_name"].(string)
		pre := asMap(job.JobState.Data["predefined_objects"])
		bot, _ := pre["bot"].(string)
		sender, _ := pre["sender_id"].(string)
		if flow == "" || bot == "" || sender == "" {
			return errx.Ef(errx.KindScheduleFailure, "job %s is missing flow_name, bot or sender_id", job.ID)
		}
		slots := asMap(pre["slot"])
		return flows.TriggerFlow(ctx, bot, sender, flow, slots)
	}
}

// asMap accepts the shapes a nested document may decode into.
func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case bson.M:
		return m
	case bson.D:
		return m.Map()
	default:
		return nil
	}
}
