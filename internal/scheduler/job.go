// Package scheduler persists cron and one-shot jobs in the document store
// and runs them through registered executors.
package scheduler

import (
	"time"
)

// TaskType tells whether a job raises an internal event or runs an action.
type TaskType string

const (
	TaskEvent  TaskType = "EVENT"
	TaskAction TaskType = "ACTION"
)

// Event classes understood by the built-in executors.
const (
	EventPyscript = "pyscript_evaluator"
	EventFlow     = "flow_trigger"
	EventMailRead = "mail_channel_read"
)

// Trigger types.
const (
	TriggerCron = "cron"
	TriggerDate = "date"
)

type (
	// Trigger decides when a job fires.
	Trigger struct {
		Type     string     `bson:"type" json:"type"`
		CronExp  string     `bson:"cron_exp,omitempty" json:"cron_exp,omitempty"`
		RunAt    *time.Time `bson:"run_at,omitempty" json:"run_at,omitempty"`
		Timezone string     `bson:"timezone" json:"timezone"`
	}

	// JobState is the serialized trigger plus the executor reference.
	JobState struct {
		TaskType   TaskType       `bson:"task_type" json:"task_type"`
		EventClass string         `bson:"event_class" json:"event_class"`
		Trigger    Trigger        `bson:"trigger" json:"trigger"`
		Data       map[string]any `bson:"data" json:"data"`
	}

	// Job is one persisted scheduled job. NextRunTime is a UTC epoch in seconds.
	Job struct {
		ID          string   `bson:"_id" json:"id"`
		NextRunTime float64  `bson:"next_run_time" json:"next_run_time"`
		JobState    JobState `bson:"job_state" json:"job_state"`
	}
)

// Epoch converts t to fractional UTC seconds.
func Epoch(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FromEpoch converts fractional seconds back to a time.
func FromEpoch(ts float64) time.Time {
	sec := int64(ts)
	return time.Unix(sec, int64((ts-float64(sec))*1e9)).UTC()
}
