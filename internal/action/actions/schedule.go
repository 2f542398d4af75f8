package actions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/actionserver/internal/action/model"
	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/scheduler"
	"github.com/Chative-core-poc-v1/actionserver/pkg/httpx"
)

// Schedule target types.
const (
	SchedulePyscript = "PYSCRIPT"
	ScheduleFlow     = "FLOW"
)

var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

func (d *Deps) execSchedule(ctx context.Context, inv *invocation) error {
	var cfg model.ScheduleConfig
	if err := inv.load(ctx, &cfg); err != nil {
		return err
	}
	inv.dispatch = cfg.DispatchBotResponse

	tc, err := inv.context(ctx)
	if err != nil {
		return err
	}
	when, _, err := d.Params.Value(ctx, tc, cfg.ScheduleTime)
	if err != nil {
		return err
	}
	runAt, err := ParseScheduleTime(httpx.Stringify(when), cfg.Timezone)
	if err != nil {
		return err
	}
	values, logged, err := d.Params.Resolve(ctx, tc, cfg.ParamsList)
	if err != nil {
		return err
	}
	inv.log.Request = logged

	predefined := map[string]any{
		"bot":          inv.bot,
		"sender_id":    tc.SenderID,
		"user_message": tc.UserMessage,
		"slot":         tc.Slots,
	}
	for k, v := range values {
		predefined[k] = v
	}
	data := map[string]any{"predefined_objects": predefined}

	var class string
	switch strings.ToUpper(cfg.ScheduleActionType) {
	case SchedulePyscript, "":
		class = scheduler.EventPyscript
		data["source_code"] = cfg.SourceCode
	case ScheduleFlow:
		class = scheduler.EventFlow
		data["flow_name"] = cfg.FlowName
	default:
		return errx.Ef(errx.KindScheduleFailure, "unsupported schedule action type %q", cfg.ScheduleActionType)
	}

	eventID := uuid.NewString()
	inv.log.ExecutionInfo = map[string]any{
		"event_id":             eventID,
		"run_at":               runAt.UTC(),
		"timezone":             cfg.Timezone,
		"schedule_action_type": cfg.ScheduleActionType,
	}
	if d.Scheduler == nil {
		return errx.Ef(errx.KindScheduleFailure, "no scheduler configured")
	}
	if err := d.Scheduler.AddOneTimeJob(ctx, eventID, scheduler.TaskEvent, runAt, class, data, cfg.Timezone); err != nil {
		return errx.E(errx.KindScheduleFailure, "failed to persist scheduled job", err)
	}
	if err := d.notifyScheduler(ctx, eventID); err != nil {
		if derr := d.Scheduler.DeleteJob(context.WithoutCancel(ctx), eventID); derr != nil {
			inv.logger.Error().Err(derr).Str("event_id", eventID).Msg("failed to remove unannounced job")
		}
		return err
	}
	inv.response = render(cfg.Response, tc)
	return nil
}

// notifyScheduler asks the event server to pick up a freshly stored job.
func (d *Deps) notifyScheduler(ctx context.Context, eventID string) error {
	client := d.Events
	if client == nil {
		client = d.HTTP
	}
	url := fmt.Sprintf("%s/api/events/dispatch/%s", strings.TrimRight(d.EventServerURL, "/"), eventID)
	resp, err := client.Do(ctx, httpx.Request{Method: http.MethodGet, URL: url})
	if err != nil {
		return errx.E(errx.KindScheduleFailure, "failed to reach event server", err)
	}
	if resp.StatusCode != http.StatusOK {
		return errx.Ef(errx.KindScheduleFailure, "event server returned status %d for %s", resp.StatusCode, eventID)
	}
	return nil
}

// ParseScheduleTime reads value in tz unless it carries its own offset.
func ParseScheduleTime(value, tz string) (time.Time, error) {
	value = strings.TrimSpace(value)
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, errx.E(errx.KindScheduleFailure, "invalid timezone "+tz, err)
		}
		loc = l
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errx.Ef(errx.KindScheduleFailure, "invalid schedule time %q", value)
}
