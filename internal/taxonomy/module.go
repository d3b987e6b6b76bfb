// Package taxonomy provides the service domain/category/skill bounded context.
// Job posting and matching consume it through the Resolver-style batched
// lookups in the service layer.
package taxonomy

import (
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/internal/taxonomy/handler"
	"fieldserve_backend/internal/taxonomy/repository"
	"fieldserve_backend/internal/taxonomy/service"
	"fieldserve_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the taxonomy bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the taxonomy module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "taxonomy"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts taxonomy routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/taxonomy/domains", m.handler.ListDomains)
	ctx.Protected.GET("/taxonomy/domains/:id/categories", m.handler.ListCategories)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
