package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/TekupDK/tekup-sub017/internal/ai"
	"github.com/TekupDK/tekup-sub017/internal/calendar"
	"github.com/TekupDK/tekup-sub017/internal/config"
	"github.com/TekupDK/tekup-sub017/internal/dedup"
	"github.com/TekupDK/tekup-sub017/internal/delivery"
	"github.com/TekupDK/tekup-sub017/internal/jobs"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/leads/repository"
	"github.com/TekupDK/tekup-sub017/internal/mail"
	"github.com/TekupDK/tekup-sub017/internal/pipeline"
	"github.com/TekupDK/tekup-sub017/internal/policy"
	"github.com/TekupDK/tekup-sub017/migrations"
	"github.com/TekupDK/tekup-sub017/platform/db"
	"github.com/TekupDK/tekup-sub017/platform/events"
	"github.com/TekupDK/tekup-sub017/platform/logger"
)

// seenTTL bounds how long a processed-thread marker lives; after expiry a
// thread with new messages is picked up again on the next poll.
const seenTTL = 12 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.AsynqQueue)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IMAPHost == "" {
		panic("IMAP_HOST is required for the worker")
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	bus := events.NewInMemoryBus(log)
	subscribeAuditLog(bus, log)
	repo := repository.New(pool)

	classifier := leads.NewClassifier(cfg.OwnDomains)
	engine := policy.NewEngine(cfg.HourlyRate)

	var source *mail.IMAPSource
	if err := withRetry(ctx, log, "imap connection", 5, 2*time.Second, func() error {
		s, err := mail.NewIMAPSource(cfg.IMAPHost, cfg.IMAPPort, cfg.IMAPUsername, cfg.IMAPPassword, cfg.IMAPFolder, log)
		if err != nil {
			return err
		}
		source = s
		return nil
	}); err != nil {
		log.Error("failed to connect to imap", "error", err)
		panic("failed to connect to imap: " + err.Error())
	}

	opts := []pipeline.Option{pipeline.WithStore(repo)}

	if cfg.CalendarBaseURL != "" {
		opts = append(opts, pipeline.WithBusyFetcher(calendar.New(cfg.CalendarBaseURL, log)))
	} else {
		log.Warn("no calendar configured, replies go out without concrete slots")
	}

	if cfg.GeminiAPIKey != "" {
		drafter, err := ai.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.DraftRequestsPerMin, engine.HourlyRate(), log)
		if err != nil {
			log.Error("failed to initialize drafter", "error", err)
			panic("failed to initialize drafter: " + err.Error())
		}
		opts = append(opts, pipeline.WithDrafter(drafter))
	} else {
		log.Warn("no drafting key configured, every reply uses the template")
	}

	if cfg.EmailEnabled {
		smtp := delivery.NewSMTPDeliverer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFromAddress, cfg.EmailFromName, log)
		opts = append(opts, pipeline.WithDeliverer(smtp))
	} else {
		log.Warn("email sending disabled, pipeline runs without delivery")
	}

	pipe := pipeline.New(classifier, engine, source, bus, log, opts...)

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		panic("invalid REDIS_URL: " + err.Error())
	}
	rdb := redis.NewClient(redisOpt)
	defer rdb.Close()
	filter := dedup.New(rdb, seenTTL)

	worker, err := jobs.NewWorker(cfg.RedisURL, cfg.AsynqQueue, cfg.AsynqConcurrency, pipe, filter, log)
	if err != nil {
		panic("failed to initialize worker: " + err.Error())
	}

	client, err := jobs.NewClient(cfg.RedisURL, cfg.AsynqQueue)
	if err != nil {
		panic("failed to connect to redis: " + err.Error())
	}
	defer client.Close()

	poller := jobs.NewPoller(source, client, cfg.PollInterval, log)

	errCh := make(chan error, 1)
	go func() {
		if err := worker.Run(); err != nil {
			errCh <- fmt.Errorf("worker: %w", err)
		}
	}()
	go func() {
		if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("poller: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("worker error", "error", err)
	}
	worker.Shutdown()
}

// subscribeAuditLog keeps a durable trace of every quote decision in the
// structured log, independent of pipeline-internal logging.
func subscribeAuditLog(bus events.Bus, log *logger.Logger) {
	bus.Subscribe(leads.EventQuoteSent, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if sent, ok := e.(leads.QuoteSent); ok {
			log.Info("quote sent", "thread_id", sent.ThreadID, "mode", string(sent.Mode), "to", sent.ReplyTo)
		}
		return nil
	}))
	bus.Subscribe(leads.EventQuoteBlocked, events.HandlerFunc(func(_ context.Context, e events.Event) error {
		if blocked, ok := e.(leads.QuoteBlocked); ok {
			log.Warn("quote blocked", "thread_id", blocked.ThreadID, "missing", blocked.Missing)
		}
		return nil
	}))
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
