// Package service contains the accounts business logic: technician and
// dealer profile management and approval.
package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"fieldserve_backend/internal/accounts/repository"
	"fieldserve_backend/internal/accounts/transport"
	"fieldserve_backend/platform/apperr"
	"fieldserve_backend/platform/logger"
)

// Service provides account profile operations.
type Service struct {
	repo *repository.Repo
	log  *logger.Logger
}

// New creates the accounts service.
func New(repo *repository.Repo, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Repository exposes the repository for cross-module reads (matching, risk).
func (s *Service) Repository() *repository.Repo {
	return s.repo
}

// GetTechnician returns a technician profile response.
func (s *Service) GetTechnician(ctx context.Context, accountID uuid.UUID) (transport.TechnicianResponse, error) {
	t, err := s.repo.GetTechnician(ctx, accountID)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}
	return toTechnicianResponse(t), nil
}

// UpdateTechnicianProfile applies self-service profile changes.
func (s *Service) UpdateTechnicianProfile(ctx context.Context, accountID uuid.UUID, req transport.UpdateTechnicianProfileRequest) (transport.TechnicianResponse, error) {
	current, err := s.repo.GetTechnician(ctx, accountID)
	if err != nil {
		return transport.TechnicianResponse{}, err
	}

	if req.Latitude != nil {
		current.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		current.Longitude = req.Longitude
	}
	if req.PlaceName != nil {
		current.PlaceName = *req.PlaceName
	}
	if req.ServiceRadiusKm != nil {
		current.ServiceRadiusKm = req.ServiceRadiusKm
	}
	if req.Skills != nil {
		payload, err := json.Marshal(req.Skills)
		if err != nil {
			return transport.TechnicianResponse{}, apperr.Validation("skills payload is not valid JSON")
		}
		current.SkillsPayload = payload
	}
	if req.CategoryLabels != nil {
		current.CategoryLabels = req.CategoryLabels
	}

	if err := s.repo.UpdateTechnicianProfile(ctx, current); err != nil {
		return transport.TechnicianResponse{}, err
	}
	return toTechnicianResponse(current), nil
}

// SetTechnicianApproval updates approval status (admin only).
func (s *Service) SetTechnicianApproval(ctx context.Context, accountID uuid.UUID, status string) error {
	return s.repo.SetTechnicianApproval(ctx, accountID, status)
}

// GetDealer returns a dealer profile response.
func (s *Service) GetDealer(ctx context.Context, accountID uuid.UUID) (transport.DealerResponse, error) {
	d, err := s.repo.GetDealer(ctx, accountID)
	if err != nil {
		return transport.DealerResponse{}, err
	}
	return transport.DealerResponse{
		AccountID:      d.AccountID,
		ApprovalStatus: d.ApprovalStatus,
		CompanyName:    d.CompanyName,
	}, nil
}

// SetDealerApproval updates approval status (admin only).
func (s *Service) SetDealerApproval(ctx context.Context, accountID uuid.UUID, status string) error {
	return s.repo.SetDealerApproval(ctx, accountID, status)
}

func toTechnicianResponse(t repository.Technician) transport.TechnicianResponse {
	var skills interface{}
	if len(t.SkillsPayload) > 0 {
		// Best effort: surface the stored payload as-is.
		_ = json.Unmarshal(t.SkillsPayload, &skills)
	}
	return transport.TechnicianResponse{
		AccountID:       t.AccountID,
		ApprovalStatus:  t.ApprovalStatus,
		Latitude:        t.Latitude,
		Longitude:       t.Longitude,
		PlaceName:       t.PlaceName,
		ServiceRadiusKm: t.ServiceRadiusKm,
		Skills:          skills,
		CategoryLabels:  t.CategoryLabels,
	}
}
