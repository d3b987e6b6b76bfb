// Package accounts provides the technician and dealer profile bounded context.
package accounts

import (
	"fieldserve_backend/internal/accounts/handler"
	"fieldserve_backend/internal/accounts/repository"
	"fieldserve_backend/internal/accounts/service"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the accounts bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the accounts module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "accounts"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes mounts profile routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	tech := ctx.Protected.Group("/technicians")
	tech.Use(httpkit.RequireRole(httpkit.RoleTechnician))
	tech.GET("/me", m.handler.GetMyTechnicianProfile)
	tech.PUT("/me", m.handler.UpdateMyTechnicianProfile)

	dealer := ctx.Protected.Group("/dealers")
	dealer.Use(httpkit.RequireRole(httpkit.RoleDealer))
	dealer.GET("/me", m.handler.GetMyDealerProfile)

	ctx.Admin.PATCH("/technicians/:id/approval", m.handler.SetTechnicianApproval)
	ctx.Admin.PATCH("/dealers/:id/approval", m.handler.SetDealerApproval)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
