package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsSweep removes expired session rows from the store.
	TaskSessionsSweep = "sessions:sweep"
	// TaskPostsPurge permanently deletes posts that sat in the trash past
	// the retention window.
	TaskPostsPurge = "posts:purge"
)

// PostsPurgePayload carries the retention window for a purge run.
type PostsPurgePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewSessionsSweepTask constructs a sweep task. The task carries no payload;
// the handler owns the store.
func NewSessionsSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsSweep, nil)
}

// NewPostsPurgeTask constructs a purge task.
func NewPostsPurgeTask(payload PostsPurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPostsPurge, data), nil
}
