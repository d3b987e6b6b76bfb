package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fieldserve_backend/internal/jobs/service"
	"fieldserve_backend/internal/jobs/transport"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidJobID     = "invalid job ID"
)

// Handler handles HTTP requests for the job lifecycle.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new jobs handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

func jobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidJobID, nil)
		return uuid.Nil, false
	}
	return id, true
}

// PostJob creates a job.
// POST /api/v1/jobs
func (h *Handler) PostJob(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.PostJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.PostJob(c.Request.Context(), identity.AccountID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ToJobView(job, identity.AccountID(), identity.Role()))
}

// ListJobs is the role-scoped job listing. Dealers see their own jobs.
// Technicians see their assigned jobs, or the matcher-filtered available
// pool with ?scope=available.
// GET /api/v1/jobs
func (h *Handler) ListJobs(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ctx := c.Request.Context()

	var err error
	var jobs []transport.JobView
	switch identity.Role() {
	case httpkit.RoleDealer:
		list, listErr := h.svc.ListForDealer(ctx, identity.AccountID())
		err, jobs = listErr, transport.ToJobViews(list, identity.AccountID(), identity.Role())
	case httpkit.RoleTechnician:
		if c.Query("scope") == "available" {
			list, listErr := h.svc.ListAvailable(ctx, identity.AccountID())
			err, jobs = listErr, transport.ToJobViews(list, identity.AccountID(), identity.Role())
		} else {
			list, listErr := h.svc.ListForTechnician(ctx, identity.AccountID())
			err, jobs = listErr, transport.ToJobViews(list, identity.AccountID(), identity.Role())
		}
	default:
		httpkit.Error(c, http.StatusForbidden, "role cannot list jobs", nil)
		return
	}

	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, jobs)
}

// GetJob returns one job, redacted for the viewer.
// GET /api/v1/jobs/:id
func (h *Handler) GetJob(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	job, err := h.svc.GetJob(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobView(job, identity.AccountID(), identity.Role()))
}

// AcceptJob races for the soft lock.
// POST /api/v1/jobs/:id/accept
func (h *Handler) AcceptJob(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		job, err := h.svc.AcceptJob(ctx.Request.Context(), id, actor)
		if err != nil {
			return nil, err
		}
		identity := httpkit.MustGetIdentity(ctx)
		return transport.ToJobView(job, actor, identity.Role()), nil
	})
}

// ConfirmSoftLock confirms the locked technician.
// POST /api/v1/jobs/:id/confirm
func (h *Handler) ConfirmSoftLock(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		job, err := h.svc.ConfirmSoftLock(ctx.Request.Context(), id, actor)
		if err != nil {
			return nil, err
		}
		return transport.ToJobView(job, actor, httpkit.RoleDealer), nil
	})
}

// ResetSoftLockTimer grants the one-shot fresh soft-lock window.
// POST /api/v1/jobs/:id/reset-timer
func (h *Handler) ResetSoftLockTimer(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		job, err := h.svc.ResetSoftLockTimer(ctx.Request.Context(), id, actor)
		if err != nil {
			return nil, err
		}
		return transport.ToJobView(job, actor, httpkit.RoleDealer), nil
	})
}

// LockPayment captures the payment into escrow.
// POST /api/v1/jobs/:id/payment
func (h *Handler) LockPayment(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req transport.LockPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.LockPayment(c.Request.Context(), id, identity.AccountID(), req.Method, req.ProofNote)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobView(job, identity.AccountID(), identity.Role()))
}

// PaymentQR streams the UPI QR code PNG for a job awaiting payment.
// GET /api/v1/jobs/:id/payment-qr
func (h *Handler) PaymentQR(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	png, err := h.svc.PaymentQR(c.Request.Context(), id, identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// StartJob begins assigned work.
// POST /api/v1/jobs/:id/start
func (h *Handler) StartJob(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		job, err := h.svc.StartJob(ctx.Request.Context(), id, actor)
		if err != nil {
			return nil, err
		}
		return transport.ToJobView(job, actor, httpkit.RoleTechnician), nil
	})
}

// RequestCompletion issues the completion OTP to the customer.
// POST /api/v1/jobs/:id/request-completion
func (h *Handler) RequestCompletion(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		if err := h.svc.RequestCompletion(ctx.Request.Context(), id, actor); err != nil {
			return nil, err
		}
		return gin.H{"sent": true}, nil
	})
}

// ResendOTP re-issues the completion code.
// POST /api/v1/jobs/:id/resend-otp
func (h *Handler) ResendOTP(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		if err := h.svc.ResendOTP(ctx.Request.Context(), id, actor); err != nil {
			return nil, err
		}
		return gin.H{"sent": true}, nil
	})
}

// VerifyCompletionOTP closes the work step with the customer code.
// POST /api/v1/jobs/:id/verify-otp
func (h *Handler) VerifyCompletionOTP(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req transport.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.VerifyCompletionOTP(c.Request.Context(), id, identity.AccountID(), req.OTP)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobView(job, identity.AccountID(), identity.Role()))
}

// ApproveJob confirms completed work at a final price.
// POST /api/v1/jobs/:id/approve
func (h *Handler) ApproveJob(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req transport.ApproveJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.ApproveJob(c.Request.Context(), id, identity.AccountID(), req.TotalAmount, req.HoldPctOverride, req.Rating)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobView(job, identity.AccountID(), identity.Role()))
}

// RequestRework sends submitted work back to the technician.
// POST /api/v1/jobs/:id/rework
func (h *Handler) RequestRework(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		job, err := h.svc.RequestRework(ctx.Request.Context(), id, actor)
		if err != nil {
			return nil, err
		}
		return transport.ToJobView(job, actor, httpkit.RoleDealer), nil
	})
}

// CancelJob cancels a job before work completes.
// POST /api/v1/jobs/:id/cancel
func (h *Handler) CancelJob(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		job, err := h.svc.CancelJob(ctx.Request.Context(), id, actor)
		if err != nil {
			return nil, err
		}
		return transport.ToJobView(job, actor, httpkit.RoleDealer), nil
	})
}

// RepostJob refreshes a pooled job for another matching round.
// POST /api/v1/jobs/:id/repost
func (h *Handler) RepostJob(c *gin.Context) {
	h.transition(c, func(ctx *gin.Context, id, actor uuid.UUID) (any, error) {
		job, err := h.svc.RepostJob(ctx.Request.Context(), id, actor)
		if err != nil {
			return nil, err
		}
		return transport.ToJobView(job, actor, httpkit.RoleDealer), nil
	})
}

// MakeCounterOffer proposes a new price during negotiation.
// POST /api/v1/jobs/:id/counter-offer
func (h *Handler) MakeCounterOffer(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req transport.CounterOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.MakeCounterOffer(c.Request.Context(), id, identity.AccountID(), req.Amount)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobView(job, identity.AccountID(), identity.Role()))
}

// RespondCounterOffer settles the pending counter-offer.
// POST /api/v1/jobs/:id/counter-offer/respond
func (h *Handler) RespondCounterOffer(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req transport.CounterOfferResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	job, err := h.svc.RespondCounterOffer(c.Request.Context(), id, identity.AccountID(), *req.Accept)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToJobView(job, identity.AccountID(), identity.Role()))
}

// RaiseDispute opens a dispute on the job.
// POST /api/v1/jobs/:id/disputes
func (h *Handler) RaiseDispute(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	var req transport.RaiseDisputeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	dispute, err := h.svc.RaiseDispute(c.Request.Context(), id, identity.AccountID(), req.Description)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, dispute)
}

// transition factors the shared identity/id plumbing of body-less
// transition endpoints.
func (h *Handler) transition(c *gin.Context, fn func(*gin.Context, uuid.UUID, uuid.UUID) (any, error)) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	id, ok := jobID(c)
	if !ok {
		return
	}

	result, err := fn(c, id, identity.AccountID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
