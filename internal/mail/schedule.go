package mail

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/scheduler"
)

// Handler runs a poll for the bot named in the job data.
func (p *Processor) Handler() scheduler.Handler {
	return func(ctx context.Context, job scheduler.Job) error {
		bot, _ := job.JobState.Data["bot"].(string)
		if bot == "" {
			return errx.Ef(errx.KindScheduleFailure, "mail job %s has no bot", job.ID)
		}
		_, err := p.Process(ctx, bot)
		return err
	}
}

// Schedule creates or refreshes the recurring poll of cfg.Bot in s and
// returns its event id.
func (p *Processor) Schedule(ctx context.Context, s *scheduler.Scheduler, cfg model.MailChannelConfig) (string, error) {
	state, err := p.State(ctx, cfg.Bot)
	if err != nil {
		return "", err
	}
	cronExp := pollCron(cfg.Interval)
	data := map[string]any{"bot": cfg.Bot}

	if state.EventID != "" {
		err = s.UpdateJob(ctx, state.EventID, scheduler.TaskEvent, cronExp, scheduler.EventMailRead, data, "UTC")
		if err == nil {
			return state.EventID, nil
		}
		if !errors.Is(err, errx.ErrNotFound) {
			return "", err
		}
	}

	id := uuid.NewString()
	if err := s.AddJob(ctx, id, scheduler.TaskEvent, cronExp, scheduler.EventMailRead, data, "UTC"); err != nil {
		return "", err
	}
	if err := p.store.Update(ctx, model.CollectionMailChannelState, bson.M{"bot": cfg.Bot},
		bson.M{"event_id": id}, true); err != nil {
		return "", err
	}
	return id, nil
}

// Unschedule stops polling for bot.
func (p *Processor) Unschedule(ctx context.Context, s *scheduler.Scheduler, bot string) error {
	state, err := p.State(ctx, bot)
	if err != nil || state.EventID == "" {
		return err
	}
	if err := s.DeleteJob(ctx, state.EventID); err != nil {
		return err
	}
	return p.store.Update(ctx, model.CollectionMailChannelState, bson.M{"bot": bot}, bson.M{"event_id": ""}, false)
}

// pollCron turns an interval in minutes into a cron expression.
func pollCron(minutes int) string {
	switch {
	case minutes <= 1:
		return "* * * * *"
	case minutes < 60:
		return fmt.Sprintf("*/%d * * * *", minutes)
	default:
		return fmt.Sprintf("0 */%d * * *", min(minutes/60, 23))
	}
}
