// Package jobs provides the job lifecycle bounded context: posting,
// matching fan-out, the acceptance race, payment lock, OTP-gated
// completion, approval, negotiation and reposts.
package jobs

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"fieldserve_backend/internal/events"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/jobs/handler"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/internal/jobs/service"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/validator"
)

// Module is the jobs bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// Deps carries the cross-context collaborators the lifecycle controller
// drives. Timers may be nil in tests.
type Deps struct {
	Timers   service.TimerScheduler
	TechDir  service.TechnicianDirectory
	Taxonomy service.TaxonomyResolver
	Risk     service.RiskAssessor
	Escrow   service.EscrowManager
}

// NewModule creates and initializes the jobs module.
func NewModule(pool *pgxpool.Pool, rdb *redis.Client, bus events.Bus, cfg config.LifecycleConfig, log *logger.Logger, val *validator.Validator, deps Deps) *Module {
	repo := repository.New(pool)
	otp := service.NewOTPStore(rdb, cfg.GetOTPTTL())
	svc := service.New(repo, otp, bus, deps.Timers, deps.TechDir, deps.Taxonomy, deps.Risk, deps.Escrow, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "jobs"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts job lifecycle routes on the protected group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobs := ctx.Protected.Group("/jobs")
	jobs.GET("", m.handler.ListJobs)
	jobs.GET("/:id", m.handler.GetJob)

	dealer := httpkit.RequireRole(httpkit.RoleDealer)
	technician := httpkit.RequireRole(httpkit.RoleTechnician)

	jobs.POST("", dealer, m.handler.PostJob)
	jobs.POST("/:id/confirm", dealer, m.handler.ConfirmSoftLock)
	jobs.POST("/:id/reset-timer", dealer, m.handler.ResetSoftLockTimer)
	jobs.POST("/:id/payment", dealer, m.handler.LockPayment)
	jobs.GET("/:id/payment-qr", dealer, m.handler.PaymentQR)
	jobs.POST("/:id/approve", dealer, m.handler.ApproveJob)
	jobs.POST("/:id/rework", dealer, m.handler.RequestRework)
	jobs.POST("/:id/cancel", dealer, m.handler.CancelJob)
	jobs.POST("/:id/repost", dealer, m.handler.RepostJob)

	jobs.POST("/:id/accept", technician, m.handler.AcceptJob)
	jobs.POST("/:id/start", technician, m.handler.StartJob)
	jobs.POST("/:id/request-completion", technician, m.handler.RequestCompletion)
	jobs.POST("/:id/resend-otp", technician, m.handler.ResendOTP)
	jobs.POST("/:id/verify-otp", technician, m.handler.VerifyCompletionOTP)

	jobs.POST("/:id/counter-offer", m.handler.MakeCounterOffer)
	jobs.POST("/:id/counter-offer/respond", m.handler.RespondCounterOffer)
	jobs.POST("/:id/disputes", m.handler.RaiseDispute)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
