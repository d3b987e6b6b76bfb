package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldserve_backend/internal/escrow/service"
	"fieldserve_backend/internal/escrow/transport"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJobID     = "invalid job ID"
	msgInvalidDisputeID = "invalid dispute ID"
)

// Handler handles HTTP requests for escrow splits, warranty issues and
// disputes.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new escrow handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GetSplit returns the escrow split for a job, net of commission when the
// caller is a technician.
// GET /api/v1/escrow/jobs/:id/split
func (h *Handler) GetSplit(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}

	view, err := h.svc.SplitForJob(c.Request.Context(), jobID, identity.Role() == httpkit.RoleTechnician)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, view)
}

// GetPayment returns the captured payment record for a job.
// GET /api/v1/escrow/jobs/:id/payment
func (h *Handler) GetPayment(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}

	payment, err := h.svc.PaymentForJob(c.Request.Context(), jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, payment)
}

// ReportWarrantyIssue records a dealer issue report within the hold window.
// POST /api/v1/escrow/jobs/:id/warranty-issues
func (h *Handler) ReportWarrantyIssue(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}

	var req transport.ReportWarrantyIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	warranty, err := h.svc.ReportWarrantyIssue(c.Request.Context(), jobID, req.Description)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, warranty)
}

// ResolveDispute applies the admin decision on an open dispute.
// POST /api/v1/admin/escrow/disputes/:id/resolve
func (h *Handler) ResolveDispute(c *gin.Context) {
	disputeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidDisputeID, nil)
		return
	}

	var req transport.ResolveDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	dispute, err := h.svc.ResolveDispute(c.Request.Context(), disputeID, *req.ReleaseToTechnician)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, dispute)
}

// ReleaseHold settles a held split for holds flagged for manual review.
// POST /api/v1/admin/escrow/jobs/:id/release-hold
func (h *Handler) ReleaseHold(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return
	}

	view, err := h.svc.ReleaseHold(c.Request.Context(), jobID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, view)
}
