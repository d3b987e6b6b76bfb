// Package transport defines request and response DTOs for the jobs HTTP
// surface, including the role-scoped job view with contact redaction.
package transport

import (
	"time"

	"github.com/google/uuid"

	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/platform/httpkit"
)

// PostJobRequest is the dealer-facing job creation body.
type PostJobRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=200"`
	Description string `json:"description" validate:"required,min=10,max=5000"`
	WorkDetail  string `json:"workDetail" validate:"required,min=5,max=5000"`

	Address   string   `json:"address" validate:"required,min=5,max=500"`
	City      string   `json:"city" validate:"required,min=2,max=100"`
	State     string   `json:"state" validate:"required,min=2,max=100"`
	Pincode   string   `json:"pincode" validate:"required,len=6,numeric"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`

	DomainID      uuid.UUID  `json:"domainId" validate:"required"`
	CategoryID    uuid.UUID  `json:"categoryId" validate:"required"`
	SubcategoryID *uuid.UUID `json:"subcategoryId"`
	SkillID       *uuid.UUID `json:"skillId"`

	CustomerName  string `json:"customerName" validate:"required,min=2,max=200"`
	CustomerPhone string `json:"customerPhone" validate:"required"`

	Amount                   int64      `json:"amount" validate:"required,gt=0"`
	EstimatedDurationMinutes *int       `json:"estimatedDurationMinutes" validate:"omitempty,gt=0"`
	ScheduledAt              *time.Time `json:"scheduledAt"`
}

// LockPaymentRequest captures the payment for a job awaiting it.
type LockPaymentRequest struct {
	Method    string  `json:"method" validate:"required,oneof=upi bank_transfer cash"`
	ProofNote *string `json:"proofNote" validate:"omitempty,max=1000"`
}

// ApproveJobRequest confirms completed work and the final price.
type ApproveJobRequest struct {
	TotalAmount     int64    `json:"totalAmount" validate:"required,gt=0"`
	HoldPctOverride *float64 `json:"holdPctOverride" validate:"omitempty,gte=0,lte=100"`
	Rating          *float64 `json:"rating" validate:"omitempty,gte=1,lte=5"`
}

// VerifyOTPRequest carries the customer-supplied completion code.
type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

// CounterOfferRequest proposes a new price during negotiation.
type CounterOfferRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// CounterOfferResponseRequest accepts or declines a pending counter-offer.
type CounterOfferResponseRequest struct {
	Accept *bool `json:"accept" validate:"required"`
}

// RaiseDisputeRequest opens a dispute on a job.
type RaiseDisputeRequest struct {
	Description string `json:"description" validate:"required,min=5,max=2000"`
}

// JobView is the job projection returned to callers. Customer contact
// details are redacted until the viewer is the assigned technician, the
// posting dealer, or an admin.
type JobView struct {
	ID        uuid.UUID     `json:"id"`
	JobNumber string        `json:"jobNumber"`
	Status    domain.Status `json:"status"`

	DealerID     uuid.UUID  `json:"dealerId"`
	TechnicianID *uuid.UUID `json:"technicianId,omitempty"`

	Title       string `json:"title"`
	Description string `json:"description"`
	WorkDetail  string `json:"workDetail"`

	Address   string   `json:"address,omitempty"`
	City      string   `json:"city"`
	State     string   `json:"state"`
	Pincode   string   `json:"pincode"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	DomainID   uuid.UUID  `json:"domainId"`
	CategoryID uuid.UUID  `json:"categoryId"`
	SkillID    *uuid.UUID `json:"skillId,omitempty"`

	CustomerName  string `json:"customerName,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`

	Amount      int64  `json:"amount"`
	FinalPrice  *int64 `json:"finalPrice,omitempty"`
	PriceLocked bool   `json:"priceLocked"`

	EstimatedDurationMinutes *int       `json:"estimatedDurationMinutes,omitempty"`
	ScheduledAt              *time.Time `json:"scheduledAt,omitempty"`

	SoftLockExpiresAt *time.Time `json:"softLockExpiresAt,omitempty"`
	PaymentDueAt      *time.Time `json:"paymentDueAt,omitempty"`

	CounterOfferAmount    *int64     `json:"counterOfferAmount,omitempty"`
	CounterOfferBy        *uuid.UUID `json:"counterOfferBy,omitempty"`
	CounterOfferExpiresAt *time.Time `json:"counterOfferExpiresAt,omitempty"`

	RepostCount         int      `json:"repostCount"`
	MaxReposts          int      `json:"maxReposts"`
	PermanentlyRejected bool     `json:"permanentlyRejected"`
	TimeoutReasons      []string `json:"timeoutReasons"`
	WarrantyDays        int      `json:"warrantyDays"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ToJobView projects a job for the given viewer, redacting customer contact
// until the viewer has a working relationship with the job.
func ToJobView(j repository.Job, viewerID uuid.UUID, viewerRole string) JobView {
	v := JobView{
		ID:                       j.ID,
		JobNumber:                j.JobNumber,
		Status:                   j.Status,
		DealerID:                 j.DealerID,
		TechnicianID:             j.TechnicianID,
		Title:                    j.Title,
		Description:              j.Description,
		WorkDetail:               j.WorkDetail,
		City:                     j.City,
		State:                    j.State,
		Pincode:                  j.Pincode,
		Latitude:                 j.Latitude,
		Longitude:                j.Longitude,
		DomainID:                 j.DomainID,
		CategoryID:               j.CategoryID,
		SkillID:                  j.SkillID,
		Amount:                   j.Amount,
		FinalPrice:               j.FinalPrice,
		PriceLocked:              j.PriceLocked,
		EstimatedDurationMinutes: j.EstimatedDurationMinutes,
		ScheduledAt:              j.ScheduledAt,
		SoftLockExpiresAt:        j.SoftLockExpiresAt,
		PaymentDueAt:             j.PaymentDueAt,
		CounterOfferAmount:       j.CounterOfferAmount,
		CounterOfferBy:           j.CounterOfferBy,
		CounterOfferExpiresAt:    j.CounterOfferExpiresAt,
		RepostCount:              j.RepostCount,
		MaxReposts:               j.MaxReposts,
		PermanentlyRejected:      j.PermanentlyRejected,
		TimeoutReasons:           j.TimeoutReasons,
		WarrantyDays:             j.WarrantyDays,
		CreatedAt:                j.CreatedAt,
		UpdatedAt:                j.UpdatedAt,
	}
	if canSeeContact(j, viewerID, viewerRole) {
		v.CustomerName = j.CustomerName
		v.CustomerPhone = j.CustomerPhone
		// The street address travels with the contact; browsing
		// technicians see city, state and pincode only.
		v.Address = j.Address
	}
	if v.TimeoutReasons == nil {
		v.TimeoutReasons = []string{}
	}
	return v
}

// ToJobViews projects a job list for one viewer.
func ToJobViews(jobs []repository.Job, viewerID uuid.UUID, viewerRole string) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, ToJobView(j, viewerID, viewerRole))
	}
	return views
}

func canSeeContact(j repository.Job, viewerID uuid.UUID, viewerRole string) bool {
	switch {
	case viewerRole == httpkit.RoleAdmin:
		return true
	case j.DealerID == viewerID:
		return true
	case j.TechnicianID != nil && *j.TechnicianID == viewerID:
		// Technicians get the customer contact once the job is theirs.
		return j.Status == domain.StatusAssigned || j.Status == domain.StatusInProgress ||
			j.Status == domain.StatusCompletionPendingApproval || j.Status == domain.StatusCompleted
	default:
		return false
	}
}
