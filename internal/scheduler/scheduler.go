package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/store"
	logx "github.com/Chative-core-poc-v1/actionserver/pkg/logger"
)

// DefaultLookahead is how many upcoming cron fires are checked against the minimum interval.
const DefaultLookahead = 5

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type (
	Options struct {
		Store      store.Store
		Collection string
		// MinInterval rejects cron expressions that fire more often than this.
		MinInterval time.Duration
		Lookahead   int
		Clock       func() time.Time
	}

	// Scheduler is the job store handle. One instance per collection is
	// created at process start and passed to the components that need it.
	Scheduler struct {
		store       store.Store
		collection  string
		minInterval time.Duration
		lookahead   int
		now         func() time.Time
	}
)

func New(opts Options) *Scheduler {
	lookahead := opts.Lookahead
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:       opts.Store,
		collection:  opts.Collection,
		minInterval: opts.MinInterval,
		lookahead:   lookahead,
		now:         now,
	}
}

// Collection returns the backing collection name.
func (s *Scheduler) Collection() string {
	return s.collection
}

// AddJob persists a recurring job.
func (s *Scheduler) AddJob(ctx context.Context, eventID string, taskType TaskType, cronExp, eventClass string, data map[string]any, timezone string) error {
	job, err := s.cronJob(eventID, taskType, cronExp, eventClass, data, timezone)
	if err != nil {
		return err
	}
	return s.save(ctx, job, false)
}

// UpdateJob replaces the trigger and payload of a recurring job.
func (s *Scheduler) UpdateJob(ctx context.Context, eventID string, taskType TaskType, cronExp, eventClass string, data map[string]any, timezone string) error {
	job, err := s.cronJob(eventID, taskType, cronExp, eventClass, data, timezone)
	if err != nil {
		return err
	}
	return s.save(ctx, job, true)
}

// AddOneTimeJob persists a job that fires once at runAt.
func (s *Scheduler) AddOneTimeJob(ctx context.Context, eventID string, taskType TaskType, runAt time.Time, eventClass string, data map[string]any, timezone string) error {
	if _, err := location(timezone); err != nil {
		return err
	}
	at := runAt.UTC()
	job := &Job{
		ID:          eventID,
		NextRunTime: Epoch(at),
		JobState: JobState{
			TaskType:   taskType,
			EventClass: eventClass,
			Trigger:    Trigger{Type: TriggerDate, RunAt: &at, Timezone: timezone},
			Data:       data,
		},
	}
	return s.save(ctx, job, false)
}

// DeleteJob removes a job. Deleting an unknown job is not an error.
func (s *Scheduler) DeleteJob(ctx context.Context, eventID string) error {
	if _, err := s.store.Delete(ctx, s.collection, bson.M{"_id": eventID}); err != nil {
		return errx.E(errx.KindScheduleFailure, fmt.Sprintf("failed to delete job %s", eventID), err)
	}
	return nil
}

// Get returns a persisted job.
func (s *Scheduler) Get(ctx context.Context, eventID string) (*Job, error) {
	var job Job
	if err := s.store.FindOne(ctx, s.collection, bson.M{"_id": eventID}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Due returns jobs whose next run time is at or before now, oldest first.
func (s *Scheduler) Due(ctx context.Context, now time.Time, limit int64) ([]Job, error) {
	var jobs []Job
	err := s.store.Find(ctx, s.collection,
		bson.M{"next_run_time": bson.M{"$lte": Epoch(now)}},
		store.FindOptions{SortBy: "next_run_time", Limit: limit},
		&jobs)
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Reschedule moves a fired job to its next occurrence, or deletes it when
// it has none.
func (s *Scheduler) Reschedule(ctx context.Context, job Job, firedAt time.Time) error {
	if job.JobState.Trigger.Type != TriggerCron {
		return s.DeleteJob(ctx, job.ID)
	}
	sched, loc, err := s.parse(job.JobState.Trigger.CronExp, job.JobState.Trigger.Timezone)
	if err != nil {
		return err
	}
	next := sched.Next(firedAt.In(loc))
	if next.IsZero() {
		return s.DeleteJob(ctx, job.ID)
	}
	if err := s.store.Update(ctx, s.collection, bson.M{"_id": job.ID}, bson.M{"next_run_time": Epoch(next)}, false); err != nil {
		return errx.E(errx.KindScheduleFailure, fmt.Sprintf("failed to reschedule job %s", job.ID), err)
	}
	return nil
}

func (s *Scheduler) cronJob(eventID string, taskType TaskType, cronExp, eventClass string, data map[string]any, timezone string) (*Job, error) {
	sched, loc, err := s.parse(cronExp, timezone)
	if err != nil {
		return nil, err
	}
	now := s.now().In(loc)
	if err := checkInterval(sched, now, s.minInterval, s.lookahead); err != nil {
		return nil, err
	}
	return &Job{
		ID:          eventID,
		NextRunTime: Epoch(sched.Next(now)),
		JobState: JobState{
			TaskType:   taskType,
			EventClass: eventClass,
			Trigger:    Trigger{Type: TriggerCron, CronExp: cronExp, Timezone: timezone},
			Data:       data,
		},
	}, nil
}

func (s *Scheduler) parse(cronExp, timezone string) (cron.Schedule, *time.Location, error) {
	loc, err := location(timezone)
	if err != nil {
		return nil, nil, err
	}
	sched, err := parser.Parse(cronExp)
	if err != nil {
		return nil, nil, errx.E(errx.KindScheduleFailure, fmt.Sprintf("invalid cron expression %q", cronExp), err)
	}
	return sched, loc, nil
}

func (s *Scheduler) save(ctx context.Context, job *Job, mustExist bool) error {
	set := bson.M{"next_run_time": job.NextRunTime, "job_state": job.JobState}
	err := s.store.Update(ctx, s.collection, bson.M{"_id": job.ID}, set, !mustExist)
	if err != nil {
		if mustExist && errors.Is(err, errx.ErrNotFound) {
			return errx.E(errx.KindScheduleFailure, fmt.Sprintf("job %s does not exist", job.ID), err)
		}
		logx.Error().Err(err).Str("event_id", job.ID).Str("collection", s.collection).Msg("failed to persist scheduled job")
		return errx.E(errx.KindScheduleFailure, fmt.Sprintf("failed to persist job %s", job.ID), err)
	}
	logx.Debug().Str("event_id", job.ID).Float64("next_run_time", job.NextRunTime).Msg("scheduled job persisted")
	return nil
}

// checkInterval rejects schedules whose next few fires are closer than min.
func checkInterval(sched cron.Schedule, from time.Time, min time.Duration, lookahead int) error {
	if min <= 0 {
		return nil
	}
	prev := sched.Next(from)
	for i := 0; i < lookahead; i++ {
		next := sched.Next(prev)
		if next.IsZero() {
			return nil
		}
		if next.Sub(prev) < min {
			return errx.Ef(errx.KindScheduleFailure, "recurrence interval must be at least %s", min)
		}
		prev = next
	}
	return nil
}

func location(tz string) (*time.Location, error) {
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errx.E(errx.KindScheduleFailure, fmt.Sprintf("unknown timezone %q", tz), err)
	}
	return loc, nil
}
