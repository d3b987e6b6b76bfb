// Package transport defines request and response DTOs for the escrow HTTP
// surface.
package transport

// ReportWarrantyIssueRequest is the dealer-facing issue report body.
type ReportWarrantyIssueRequest struct {
	Description string `json:"description" validate:"required,min=5,max=2000"`
}

// ResolveDisputeRequest records the admin decision on an open dispute.
type ResolveDisputeRequest struct {
	ReleaseToTechnician *bool  `json:"releaseToTechnician" validate:"required"`
	Note                string `json:"note" validate:"omitempty,max=2000"`
}
