// Package service provides taxonomy resolution for matching and job posting.
package service

import (
	"context"

	"github.com/google/uuid"

	"fieldserve_backend/internal/taxonomy/repository"
	"fieldserve_backend/platform/logger"
)

// defaultWarrantyDays applies when neither subcategory nor category sets one.
const defaultWarrantyDays = 7

// TitleSet holds resolved titles for a batch of taxonomy IDs, plus the skill
// membership of each requested domain. Lookups that failed are simply absent;
// matching treats absent relations as non-matching rather than erroring.
type TitleSet struct {
	DomainTitles   map[uuid.UUID]string
	CategoryTitles map[uuid.UUID]string
	SkillTitles    map[uuid.UUID]string
	DomainSkills   map[uuid.UUID][]uuid.UUID
}

// Service resolves taxonomy relations with batched queries.
type Service struct {
	repo *repository.Repo
	log  *logger.Logger
}

// New creates a taxonomy service.
func New(repo *repository.Repo, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Repository exposes the underlying repository for read-only listing.
func (s *Service) Repository() *repository.Repo {
	return s.repo
}

// ResolveTitles resolves titles for all given IDs using one query per relation
// across the whole set. A failed relation lookup is logged and left empty; it
// never aborts the batch.
func (s *Service) ResolveTitles(ctx context.Context, domainIDs, categoryIDs, skillIDs []uuid.UUID) TitleSet {
	set := TitleSet{
		DomainTitles:   map[uuid.UUID]string{},
		CategoryTitles: map[uuid.UUID]string{},
		SkillTitles:    map[uuid.UUID]string{},
		DomainSkills:   map[uuid.UUID][]uuid.UUID{},
	}

	if titles, err := s.repo.DomainTitlesByID(ctx, dedupe(domainIDs)); err != nil {
		s.log.Warn("domain title lookup failed", "error", err.Error())
	} else {
		set.DomainTitles = titles
	}

	if titles, err := s.repo.CategoryTitlesByID(ctx, dedupe(categoryIDs)); err != nil {
		s.log.Warn("category title lookup failed", "error", err.Error())
	} else {
		set.CategoryTitles = titles
	}

	if titles, err := s.repo.SkillTitlesByID(ctx, dedupe(skillIDs)); err != nil {
		s.log.Warn("skill title lookup failed", "error", err.Error())
	} else {
		set.SkillTitles = titles
	}

	if skills, err := s.repo.SkillIDsByDomain(ctx, dedupe(domainIDs)); err != nil {
		s.log.Warn("domain skill lookup failed", "error", err.Error())
	} else {
		set.DomainSkills = skills
	}

	return set
}

// ResolveWarrantyDays resolves the warranty window for a job: the subcategory
// value wins, then the category value, then the platform default.
func (s *Service) ResolveWarrantyDays(ctx context.Context, categoryID uuid.UUID, subcategoryID *uuid.UUID) int {
	if subcategoryID != nil {
		if sub, err := s.repo.GetCategory(ctx, *subcategoryID); err == nil && sub.WarrantyDays != nil {
			return *sub.WarrantyDays
		}
	}

	if cat, err := s.repo.GetCategory(ctx, categoryID); err == nil && cat.WarrantyDays != nil {
		return *cat.WarrantyDays
	}

	return defaultWarrantyDays
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
