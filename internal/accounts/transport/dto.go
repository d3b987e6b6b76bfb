package transport

import "github.com/google/uuid"

// UpdateTechnicianProfileRequest contains self-service profile fields.
// Skills accepts the historical heterogeneous payload shapes; it is stored
// raw and normalized at match time.
type UpdateTechnicianProfileRequest struct {
	Latitude        *float64    `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude       *float64    `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
	PlaceName       *string     `json:"placeName,omitempty" validate:"omitempty,max=120"`
	ServiceRadiusKm *float64    `json:"serviceRadiusKm,omitempty" validate:"omitempty,gt=0,max=500"`
	Skills          interface{} `json:"skills,omitempty"`
	CategoryLabels  []string    `json:"categoryLabels,omitempty" validate:"omitempty,dive,max=120"`
}

// SetApprovalRequest updates a participant's approval status (admin).
type SetApprovalRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

// TechnicianResponse represents a technician profile in API responses.
type TechnicianResponse struct {
	AccountID       uuid.UUID   `json:"accountId"`
	ApprovalStatus  string      `json:"approvalStatus"`
	Latitude        *float64    `json:"latitude,omitempty"`
	Longitude       *float64    `json:"longitude,omitempty"`
	PlaceName       string      `json:"placeName,omitempty"`
	ServiceRadiusKm *float64    `json:"serviceRadiusKm,omitempty"`
	Skills          interface{} `json:"skills,omitempty"`
	CategoryLabels  []string    `json:"categoryLabels,omitempty"`
}

// DealerResponse represents a dealer profile in API responses.
type DealerResponse struct {
	AccountID      uuid.UUID `json:"accountId"`
	ApprovalStatus string    `json:"approvalStatus"`
	CompanyName    string    `json:"companyName,omitempty"`
}
