package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/TekupDK/tekup-sub017/internal/dedup"
	"github.com/TekupDK/tekup-sub017/internal/pipeline"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	pipeline *pipeline.Pipeline
	filter   *dedup.Filter
	log      *logger.Logger
}

func NewWorker(redisURL, queue string, concurrency int, pipe *pipeline.Pipeline, filter *dedup.Filter, log *logger.Logger) (*Worker, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}
	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	if queue == "" {
		queue = "default"
	}
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		pipeline: pipe,
		filter:   filter,
		log:      log,
	}
	mux.HandleFunc(TaskProcessThread, w.handleProcessThread)

	return w, nil
}

func (w *Worker) Run() error {
	return w.server.Run(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

// handleProcessThread runs the pipeline for one thread. The dedup marker
// makes a replayed or double-enqueued task a no-op; a failed run releases the
// marker so asynq's retry gets a clean attempt.
func (w *Worker) handleProcessThread(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseProcessThreadPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	if w.filter != nil {
		first, err := w.filter.FirstSeen(ctx, payload.ThreadID)
		if err != nil {
			return fmt.Errorf("dedup check: %w", err)
		}
		if !first {
			w.log.Debug("thread already processed", "thread_id", payload.ThreadID)
			return nil
		}
	}

	result, err := w.pipeline.ProcessThread(ctx, payload.ThreadID)
	if err != nil {
		if w.filter != nil {
			if forgetErr := w.filter.Forget(ctx, payload.ThreadID); forgetErr != nil {
				w.log.Error("release dedup marker", "thread_id", payload.ThreadID, "error", forgetErr)
			}
		}
		return err
	}

	w.log.Info("thread processed",
		"thread_id", payload.ThreadID,
		"source", string(result.Lead.Source),
		"status", string(result.Lead.Status),
		"delivered", result.Delivered,
		"drafted", result.Drafted,
	)
	return nil
}
