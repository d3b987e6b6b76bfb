package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldserve_backend/internal/risk/service"
	"fieldserve_backend/platform/httpkit"
)

// Handler serves admin-facing risk reports.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// TechnicianReliability returns the reliability metrics for a technician.
// GET /api/v1/admin/risk/technicians/:id
func (h *Handler) TechnicianReliability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid technician ID", nil)
		return
	}

	metrics, err := h.svc.TechnicianReliability(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, metrics)
}

// DealerReliability returns the reliability metrics for a dealer.
// GET /api/v1/admin/risk/dealers/:id
func (h *Handler) DealerReliability(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid dealer ID", nil)
		return
	}

	metrics, err := h.svc.DealerReliability(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, metrics)
}

// Assess scores a technician/dealer pairing.
// GET /api/v1/admin/risk/assess?technicianId=...&dealerId=...
func (h *Handler) Assess(c *gin.Context) {
	technicianID, err := uuid.Parse(c.Query("technicianId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid technicianId", nil)
		return
	}
	dealerID, err := uuid.Parse(c.Query("dealerId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid dealerId", nil)
		return
	}

	assessment, err := h.svc.Assess(c.Request.Context(), technicianID, dealerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, assessment)
}
