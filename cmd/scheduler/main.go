package main

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"fieldserve_backend/internal/accounts"
	"fieldserve_backend/internal/config"
	"fieldserve_backend/internal/escrow"
	"fieldserve_backend/internal/events"
	"fieldserve_backend/internal/jobs"
	"fieldserve_backend/internal/notification"
	"fieldserve_backend/internal/risk"
	"fieldserve_backend/internal/scheduler"
	"fieldserve_backend/internal/taxonomy"
	platformcfg "fieldserve_backend/platform/config"
	"fieldserve_backend/platform/db"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
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

	rdb, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer rdb.Close()

	eventBus := events.NewInMemoryBus(log)

	mail := initEmailSender(cfg, log)
	val := validator.New()

	// Worker-side lifecycle wiring (no HTTP handlers required). Timer
	// handlers expire jobs through the same service the API uses, so the
	// notification module must be subscribed here too.
	accountsModule := accounts.NewModule(pool, val, log)
	taxonomyModule := taxonomy.NewModule(pool, log)
	riskModule := risk.NewModule(pool, log)
	escrowModule := escrow.NewModule(pool, eventBus, cfg, log, val)

	timerClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize timer scheduler client", "error", err)
		panic("failed to initialize timer scheduler client: " + err.Error())
	}
	defer func() { _ = timerClient.Close() }()

	jobsModule := jobs.NewModule(pool, rdb, eventBus, cfg, log, val, jobs.Deps{
		Timers:   timerClient,
		TechDir:  accountsModule.Repository(),
		Taxonomy: taxonomyModule.Service(),
		Risk:     riskModule.Service(),
		Escrow:   escrowModule.Service(),
	})

	notification.NewModule(pool, eventBus, mail, log)

	slaPoll := scheduler.NewSLAPoll(riskModule.Service(), eventBus, log,
		getDurationEnv("SLA_POLL_INTERVAL", 15*time.Minute))
	go slaPoll.Run(ctx)

	holdSweep := scheduler.NewHoldReleaseSweep(escrowModule.Service(), log,
		getDurationEnv("HOLD_RELEASE_SWEEP_INTERVAL", time.Hour))
	go holdSweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, jobsModule.Service(), escrowModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func initEmailSender(cfg *config.Config, log *logger.Logger) notification.EmailSender {
	if !cfg.GetEmailEnabled() {
		log.Warn("email sending disabled; notifications are in-app only")
		return notification.NoopSender{}
	}
	return notification.NewSMTPSender(
		cfg.GetSMTPHost(), cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName(),
	)
}

func newRedisClient(cfg platformcfg.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	if opt.TLSConfig != nil && cfg.GetRedisTLSInsecure() {
		opt.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return redis.NewClient(opt), nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
