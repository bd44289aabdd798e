// Package jobs runs the pipeline asynchronously over asynq: a poller
// enqueues one task per inbound thread, workers process them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskProcessThread = "threads.process"

type ProcessThreadPayload struct {
	ThreadID string `json:"threadId"`
}

func NewProcessThreadTask(payload ProcessThreadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskProcessThread, data), nil
}

func ParseProcessThreadPayload(task *asynq.Task) (ProcessThreadPayload, error) {
	var payload ProcessThreadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ProcessThreadPayload{}, err
	}
	return payload, nil
}
