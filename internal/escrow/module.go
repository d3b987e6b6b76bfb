// Package escrow provides the payment and warranty-hold bounded context.
// The lifecycle controller calls into its service at payment lock and at
// approval; the scheduler drives hold releases.
package escrow

import (
	"fieldserve_backend/internal/escrow/handler"
	"fieldserve_backend/internal/escrow/repository"
	"fieldserve_backend/internal/escrow/service"
	"fieldserve_backend/internal/events"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the escrow bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the escrow module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, cfg config.EscrowConfig, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "escrow"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts escrow routes on the protected and admin groups.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	jobs := ctx.Protected.Group("/escrow/jobs")
	jobs.GET("/:id/split", m.handler.GetSplit)
	jobs.GET("/:id/payment", m.handler.GetPayment)
	jobs.POST("/:id/warranty-issues", httpkit.RequireRole(httpkit.RoleDealer), m.handler.ReportWarrantyIssue)

	ctx.Admin.POST("/escrow/disputes/:id/resolve", m.handler.ResolveDispute)
	ctx.Admin.POST("/escrow/jobs/:id/release-hold", m.handler.ReleaseHold)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
