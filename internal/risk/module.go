// Package risk provides the reliability scoring bounded context. The job
// lifecycle controller asks it for a hold recommendation at approval time;
// the scheduler drives its SLA poll.
package risk

import (
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/risk/handler"
	"fieldserve_backend/internal/risk/repository"
	"fieldserve_backend/internal/risk/service"
	"fieldserve_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the risk bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the risk module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "risk"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts risk report routes on the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.GET("/risk/technicians/:id", m.handler.TechnicianReliability)
	ctx.Admin.GET("/risk/dealers/:id", m.handler.DealerReliability)
	ctx.Admin.GET("/risk/assess", m.handler.Assess)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
