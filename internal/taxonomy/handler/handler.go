package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldserve_backend/internal/taxonomy/service"
	"fieldserve_backend/platform/httpkit"
)

// Handler serves read-only taxonomy listings used by posting forms.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// ListDomains retrieves all service domains.
// GET /api/v1/taxonomy/domains
func (h *Handler) ListDomains(c *gin.Context) {
	domains, err := h.svc.Repository().ListDomains(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": domains})
}

// ListCategories retrieves the categories of one domain.
// GET /api/v1/taxonomy/domains/:id/categories
func (h *Handler) ListCategories(c *gin.Context) {
	domainID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid domain ID", nil)
		return
	}

	cats, err := h.svc.Repository().ListCategories(c.Request.Context(), domainID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": cats})
}
