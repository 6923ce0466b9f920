package jobs

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSalesImport imports an uploaded sales CSV.
	TaskSalesImport = "sales:import"
)

// SalesImportPayload carries an uploaded CSV to the worker.
type SalesImportPayload struct {
	Filename    string    `json:"filename"`
	Data        []byte    `json:"data"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewSalesImportTask constructs an Asynq task. Imports are never retried:
// accepted rows stay stored, so a second run would duplicate them.
func NewSalesImportTask(payload SalesImportPayload) (*asynq.Task, error) {
	if len(payload.Data) == 0 {
		return nil, errors.New("jobs: empty import payload")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesImport, data, asynq.MaxRetry(0), asynq.Queue(QueueDefault)), nil
}
