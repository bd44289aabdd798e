package jobs

import (
	"context"
	"time"

	"github.com/TekupDK/tekup-sub017/internal/mail"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

// ThreadLister supplies the current set of inbox threads.
type ThreadLister interface {
	FetchThreads(ctx context.Context) ([]mail.RawThread, error)
}

// Poller periodically lists inbox threads and enqueues a processing task per
// thread. Deduplication happens downstream, so enqueueing the same thread on
// every pass is harmless.
type Poller struct {
	source   ThreadLister
	client   *Client
	interval time.Duration
	log      *logger.Logger
}

func NewPoller(source ThreadLister, client *Client, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{source: source, client: client, interval: interval, log: log}
}

// Run polls until the context is cancelled. The first pass runs immediately.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	threads, err := p.source.FetchThreads(ctx)
	if err != nil {
		p.log.Error("poll inbox", "error", err)
		return
	}

	enqueued := 0
	for _, thread := range threads {
		if err := p.client.EnqueueProcessThread(ctx, thread.ID); err != nil {
			p.log.Error("enqueue thread", "thread_id", thread.ID, "error", err)
			continue
		}
		enqueued++
	}
	p.log.Debug("inbox polled", "threads", len(threads), "enqueued", enqueued)
}
