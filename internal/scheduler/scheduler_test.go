package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/Chative-core-poc-v1/actionserver/internal/core/error"
	"github.com/Chative-core-poc-v1/actionserver/internal/evaluator"
	"github.com/Chative-core-poc-v1/actionserver/internal/store/memstore"
)

var base = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newScheduler(min time.Duration, now *time.Time) (*Scheduler, *memstore.Store) {
	s := memstore.New()
	return New(Options{
		Store:       s,
		Collection:  "kscheduler",
		MinInterval: min,
		Clock:       func() time.Time { return *now },
	}), s
}

func TestAddOneTimeJob(t *testing.T) {
	t.Parallel()
	now := base
	sched, _ := newScheduler(0, &now)
	ctx := context.Background()

	runAt := now.Add(10 * time.Second)
	require.NoError(t, sched.AddOneTimeJob(ctx, "evt-1", TaskEvent, runAt, EventPyscript, map[string]any{"source_code": "x"}, "Asia/Kolkata"))

	job, err := sched.Get(ctx, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", job.ID)
	assert.InDelta(t, Epoch(runAt), job.NextRunTime, 0.001)
	assert.Equal(t, TriggerDate, job.JobState.Trigger.Type)
	assert.Equal(t, "x", job.JobState.Data["source_code"])
}

func TestAddJobComputesNextFire(t *testing.T) {
	t.Parallel()
	now := base
	sched, _ := newScheduler(time.Hour, &now)
	ctx := context.Background()

	require.NoError(t, sched.AddJob(ctx, "daily", TaskEvent, "30 9 * * *", EventPyscript, nil, "UTC"))
	job, err := sched.Get(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), FromEpoch(job.NextRunTime))

	require.NoError(t, sched.UpdateJob(ctx, "daily", TaskEvent, "0 7 * * *", EventPyscript, nil, "UTC"))
	job, err = sched.Get(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 7, 0, 0, 0, time.UTC), FromEpoch(job.NextRunTime))
}

func TestAddJobRejectsFrequentCron(t *testing.T) {
	t.Parallel()
	now := base
	sched, _ := newScheduler(10*time.Minute, &now)
	err := sched.AddJob(context.Background(), "fast", TaskEvent, "*/5 * * * *", EventPyscript, nil, "")
	require.Error(t, err)
	assert.Equal(t, errx.KindScheduleFailure, errx.KindOf(err))

	err = sched.AddJob(context.Background(), "bad", TaskEvent, "not a cron", EventPyscript, nil, "")
	assert.True(t, errx.IsKind(err, errx.KindScheduleFailure))

	err = sched.AddJob(context.Background(), "tz", TaskEvent, "0 * * * *", EventPyscript, nil, "Mars/Olympus")
	assert.True(t, errx.IsKind(err, errx.KindScheduleFailure))
}

func TestUpdateUnknownJob(t *testing.T) {
	t.Parallel()
	now := base
	sched, _ := newScheduler(0, &now)
	err := sched.UpdateJob(context.Background(), "ghost", TaskEvent, "0 * * * *", EventPyscript, nil, "")
	assert.True(t, errx.IsKind(err, errx.KindScheduleFailure))
}

func TestRunnerFiresDueJobs(t *testing.T) {
	t.Parallel()
	now := base
	sched, s := newScheduler(0, &now)
	ctx := context.Background()

	require.NoError(t, sched.AddOneTimeJob(ctx, "once", TaskEvent, now.Add(-time.Second), EventPyscript,
		map[string]any{"source_code": "bot_response = 1", "predefined_objects": map[string]any{"bot": "b"}}, ""))
	require.NoError(t, sched.AddJob(ctx, "hourly", TaskEvent, "0 * * * *", "custom", nil, ""))
	require.NoError(t, sched.AddOneTimeJob(ctx, "later", TaskEvent, now.Add(2*time.Hour), EventPyscript, nil, ""))

	var (
		mu      sync.Mutex
		sources []string
		custom  int
	)
	exec := NewExecutor()
	exec.Register(EventPyscript, PyscriptHandler(evaluator.Func(func(_ context.Context, src string, pre map[string]any) (*evaluator.Result, error) {
		mu.Lock()
		sources = append(sources, src+"|"+pre["bot"].(string))
		mu.Unlock()
		return &evaluator.Result{}, nil
	})))
	exec.Register("custom", func(context.Context, Job) error {
		mu.Lock()
		custom++
		mu.Unlock()
		return errors.New("handler failure is logged, not fatal")
	})

	// move the clock past the first hourly fire
	now = base.Add(time.Hour)
	r := NewRunner(sched, exec, RunnerOptions{Workers: 2, Clock: func() time.Time { return now }})
	fired, err := r.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fired)
	assert.Equal(t, []string{"bot_response = 1|b"}, sources)
	assert.Equal(t, 1, custom)

	_, err = sched.Get(ctx, "once")
	assert.ErrorIs(t, err, errx.ErrNotFound)

	hourly, err := sched.Get(ctx, "hourly")
	require.NoError(t, err)
	assert.Equal(t, base.Add(2*time.Hour), FromEpoch(hourly.NextRunTime))
	assert.Equal(t, 2, s.Len("kscheduler"))
}

func TestExecutorUnknownClass(t *testing.T) {
	t.Parallel()
	err := NewExecutor().Execute(context.Background(), Job{ID: "x", JobState: JobState{EventClass: "nope"}})
	assert.True(t, errx.IsKind(err, errx.KindScheduleFailure))
}

type flows struct{ got []string }

func (f *flows) TriggerFlow(_ context.Context, bot, sender, flow string, _ map[string]any) error {
	f.got = append(f.got, bot+"/"+sender+"/"+flow)
	return nil
}

func TestFlowHandler(t *testing.T) {
	t.Parallel()
	f := &flows{}
	h := FlowHandler(f)
	err := h(context.Background(), Job{ID: "j", JobState: JobState{Data: map[string]any{
		"flow_name":          "onboarding",
		"predefined_objects": map[string]any{"bot": "b", "sender_id": "u"},
	}}})
	require.NoError(t, err)
	assert.Equal(t, []string{"b/u/onboarding"}, f.got)

	err = h(context.Background(), Job{ID: "j", JobState: JobState{Data: map[string]any{}}})
	assert.Error(t, err)
}
