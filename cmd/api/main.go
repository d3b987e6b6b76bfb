package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"fieldserve_backend/internal/accounts"
	"fieldserve_backend/internal/auth"
	"fieldserve_backend/internal/config"
	"fieldserve_backend/internal/escrow"
	"fieldserve_backend/internal/events"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/http/router"
	"fieldserve_backend/internal/jobs"
	jobssvc "fieldserve_backend/internal/jobs/service"
	"fieldserve_backend/internal/notification"
	"fieldserve_backend/internal/risk"
	"fieldserve_backend/internal/scheduler"
	"fieldserve_backend/internal/taxonomy"
	"fieldserve_backend/migrations"
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
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	rdb, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer rdb.Close()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	timerClient, closeTimers := initTimerScheduler(cfg, log)
	if closeTimers != nil {
		defer closeTimers()
	}

	mail := initEmailSender(cfg, log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	accountsModule := accounts.NewModule(pool, val, log)
	authModule := auth.NewModule(accountsModule.Repository(), cfg, log, val)
	taxonomyModule := taxonomy.NewModule(pool, log)
	riskModule := risk.NewModule(pool, log)
	escrowModule := escrow.NewModule(pool, eventBus, cfg, log, val)

	jobsDeps := jobs.Deps{
		TechDir:  accountsModule.Repository(),
		Taxonomy: taxonomyModule.Service(),
		Risk:     riskModule.Service(),
		Escrow:   escrowModule.Service(),
	}
	if timerClient != nil {
		jobsDeps.Timers = timerClient
	}
	jobsModule := jobs.NewModule(pool, rdb, eventBus, cfg, log, val, jobsDeps)

	// Notification module subscribes to domain events and serves the inbox
	notificationModule := notification.NewModule(pool, eventBus, mail, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			authModule,
			accountsModule,
			taxonomyModule,
			jobsModule,
			escrowModule,
			riskModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initTimerScheduler(cfg platformcfg.SchedulerConfig, log *logger.Logger) (jobssvc.TimerScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; lifecycle timers disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize timer scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
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
	return fmt.Errorf("%s: %w", name, lastErr)
}
