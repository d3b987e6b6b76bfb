// Package auth provides the authentication bounded context module.
package auth

import (
	accountsrepo "fieldserve_backend/internal/accounts/repository"
	"fieldserve_backend/internal/auth/handler"
	"fieldserve_backend/internal/auth/service"
	apphttp "fieldserve_backend/internal/http"
	"fieldserve_backend/platform/config"
	"fieldserve_backend/platform/logger"
	"fieldserve_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module. It shares the accounts
// repository with the accounts module so both operate on the same rows.
func NewModule(accounts *accountsrepo.Repo, cfg config.AuthServiceConfig, log *logger.Logger, val *validator.Validator) *Module {
	svc := service.New(accounts, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit())
	m.handler.RegisterRoutes(authGroup)

	ctx.Protected.GET("/users/me", m.handler.GetMe)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
