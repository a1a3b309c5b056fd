package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBlacklistSweep is the task type for purging expired revocation
	// records.
	TaskBlacklistSweep = "blacklist:sweep"
)

// BlacklistSweepPayload carries the cutoff for a sweep run. A zero cutoff
// means "now at execution time".
type BlacklistSweepPayload struct {
	Cutoff time.Time `json:"cutoff,omitempty"`
}

// NewBlacklistSweepTask constructs an Asynq task.
func NewBlacklistSweepTask(payload BlacklistSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBlacklistSweep, data), nil
}
