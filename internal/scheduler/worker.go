package scheduler

import (
	"context"
	"fmt"

	escrowsvc "fieldserve_backend/internal/escrow/service"
	jobssvc "fieldserve_backend/internal/jobs/service"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes the lifecycle timer tasks. Every handler funnels into the
// same CAS-guarded service entry points as the HTTP surface, so a timer and
// a manual transition can never double-apply.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	jobs   *jobssvc.Service
	escrow *escrowsvc.Service
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, jobs *jobssvc.Service, escrow *escrowsvc.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
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
		server: server,
		mux:    mux,
		jobs:   jobs,
		escrow: escrow,
		log:    log,
	}

	mux.HandleFunc(TaskSoftLockExpiry, w.handleSoftLockExpiry)
	mux.HandleFunc(TaskPaymentDeadline, w.handlePaymentDeadline)
	mux.HandleFunc(TaskNegotiationExpiry, w.handleNegotiationExpiry)
	mux.HandleFunc(TaskHoldRelease, w.handleHoldRelease)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleSoftLockExpiry(ctx context.Context, task *asynq.Task) error {
	jobID, generation, err := lifecyclePayload(task)
	if err != nil {
		return err
	}
	return w.jobs.HandleSoftLockExpiry(ctx, jobID, generation)
}

func (w *Worker) handlePaymentDeadline(ctx context.Context, task *asynq.Task) error {
	jobID, generation, err := lifecyclePayload(task)
	if err != nil {
		return err
	}
	return w.jobs.HandlePaymentDeadline(ctx, jobID, generation)
}

func (w *Worker) handleNegotiationExpiry(ctx context.Context, task *asynq.Task) error {
	jobID, generation, err := lifecyclePayload(task)
	if err != nil {
		return err
	}
	return w.jobs.HandleNegotiationExpiry(ctx, jobID, generation)
}

func (w *Worker) handleHoldRelease(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHoldReleasePayload(task)
	if err != nil {
		return err
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return err
	}
	return w.escrow.ReleaseDueHold(ctx, jobID)
}

func lifecyclePayload(task *asynq.Task) (uuid.UUID, int, error) {
	payload, err := ParseLifecycleTimerPayload(task)
	if err != nil {
		return uuid.Nil, 0, err
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return uuid.Nil, 0, err
	}
	return jobID, payload.Generation, nil
}
