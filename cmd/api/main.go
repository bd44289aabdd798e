package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TekupDK/tekup-sub017/internal/config"
	"github.com/TekupDK/tekup-sub017/internal/delivery"
	apphttp "github.com/TekupDK/tekup-sub017/internal/http"
	"github.com/TekupDK/tekup-sub017/internal/jobs"
	"github.com/TekupDK/tekup-sub017/internal/leads"
	"github.com/TekupDK/tekup-sub017/internal/leads/repository"
	"github.com/TekupDK/tekup-sub017/internal/pipeline"
	"github.com/TekupDK/tekup-sub017/internal/policy"
	"github.com/TekupDK/tekup-sub017/migrations"
	"github.com/TekupDK/tekup-sub017/platform/db"
	"github.com/TekupDK/tekup-sub017/platform/events"
	"github.com/TekupDK/tekup-sub017/platform/logger"
	"github.com/TekupDK/tekup-sub017/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
	log.Info("database ready")

	bus := events.NewInMemoryBus(log)
	val := validator.New()
	repo := repository.New(pool)

	classifier := leads.NewClassifier(cfg.OwnDomains)
	engine := policy.NewEngine(cfg.HourlyRate)

	// The API previews and approves replies; background delivery stays with
	// the worker. The pipeline here never sends on its own.
	pipe := pipeline.New(classifier, engine, nil, bus, log, pipeline.WithStore(repo))

	deliverer := buildDeliverer(cfg, log)

	jobsClient, err := jobs.NewClient(cfg.RedisURL, cfg.AsynqQueue)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer jobsClient.Close()

	handler := apphttp.NewHandler(classifier, engine, pipe, deliverer, jobsClient, repo, val, log)
	router := apphttp.NewRouter(cfg, handler, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func buildDeliverer(cfg *config.Config, log *logger.Logger) pipeline.Deliverer {
	if !cfg.EmailEnabled {
		log.Warn("email sending disabled, approved replies are dropped")
		return noopDeliverer{log: log}
	}
	return delivery.NewSMTPDeliverer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFromAddress, cfg.EmailFromName, log)
}

type noopDeliverer struct {
	log *logger.Logger
}

func (n noopDeliverer) Deliver(_ context.Context, d pipeline.Delivery) error {
	n.log.Info("email disabled, dropping reply", "thread_id", d.ThreadID, "to", d.To)
	return nil
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
