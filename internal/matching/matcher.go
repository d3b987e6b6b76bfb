// Package matching implements the geo/skill matcher that selects the
// technicians eligible to be notified of, and assigned to, a job. The
// matcher is a pure function over its inputs: taxonomy titles are resolved
// in batch beforehand and passed in, so matching issues no queries itself.
//
// Missing data fails open by policy: the marketplace prefers over-matching
// to silently stranding jobs or technicians with incomplete profiles.
package matching

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// JobSpec is the slice of a job the matcher needs.
type JobSpec struct {
	Latitude   *float64
	Longitude  *float64
	City       string
	DomainID   uuid.UUID
	CategoryID uuid.UUID
	SkillID    *uuid.UUID
}

// TechProfile is the slice of a technician profile the matcher needs.
type TechProfile struct {
	ID              uuid.UUID
	Latitude        *float64
	Longitude       *float64
	PlaceName       string
	ServiceRadiusKm *float64
	Skills          []SkillRef
	CategoryLabels  []string
}

// Titles carries pre-resolved taxonomy titles for the whole candidate set.
// One batched lookup per relation; the matcher never queries per candidate.
type Titles struct {
	DomainTitles   map[uuid.UUID]string
	CategoryTitles map[uuid.UUID]string
	SkillTitles    map[uuid.UUID]string
	DomainSkills   map[uuid.UUID][]uuid.UUID
}

// Candidate is an eligible technician together with the reasons each rule
// matched, kept for observability.
type Candidate struct {
	TechnicianID   uuid.UUID
	LocationReason string
	SkillReason    string
}

// Match returns the technicians eligible for the job. Pure and
// order-independent: the result set is the same regardless of input order.
func Match(job JobSpec, technicians []TechProfile, titles Titles) []Candidate {
	hasLocation := jobHasLocation(job)

	candidates := make([]Candidate, 0, len(technicians))
	for _, tech := range technicians {
		locOK, locReason := locationMatch(job, tech)
		if hasLocation && !locOK {
			continue
		}

		skillOK, skillReason := skillMatch(job, tech, titles)
		if !skillOK {
			continue
		}

		candidates = append(candidates, Candidate{
			TechnicianID:   tech.ID,
			LocationReason: locReason,
			SkillReason:    skillReason,
		})
	}
	return candidates
}

func jobHasLocation(job JobSpec) bool {
	return hasCoords(job.Latitude, job.Longitude) || strings.TrimSpace(job.City) != ""
}

// locationMatch applies the location rule ladder. Each branch yields a
// reason string for observability.
func locationMatch(job JobSpec, tech TechProfile) (bool, string) {
	jobCoords := hasCoords(job.Latitude, job.Longitude)
	techCoords := hasCoords(tech.Latitude, tech.Longitude)
	jobCity := strings.TrimSpace(job.City)
	techPlace := strings.TrimSpace(tech.PlaceName)

	switch {
	case jobCoords && techCoords:
		radius := DefaultServiceRadiusKm
		if tech.ServiceRadiusKm != nil && *tech.ServiceRadiusKm > 0 {
			radius = *tech.ServiceRadiusKm
		}
		distance := Haversine(*job.Latitude, *job.Longitude, *tech.Latitude, *tech.Longitude)
		if distance <= radius {
			return true, fmt.Sprintf("within service radius: %.1f km <= %.0f km", distance, radius)
		}
		return false, fmt.Sprintf("outside service radius: %.1f km > %.0f km", distance, radius)

	case jobCity != "" && techPlace != "":
		if strings.EqualFold(jobCity, techPlace) {
			return true, "city name match: " + jobCity
		}
		return false, fmt.Sprintf("city mismatch: %s vs %s", jobCity, techPlace)

	case !jobCoords && jobCity == "":
		// Job carries no location data; cannot exclude anyone on location.
		return true, "job has no location data"

	default:
		// Job has location, technician does not, and no city pair to compare.
		return true, "technician has no location data"
	}
}

// skillMatch applies the skill rule ladder; the first rule that succeeds wins.
func skillMatch(job JobSpec, tech TechProfile, titles Titles) (bool, string) {
	domainTitle := titles.DomainTitles[job.DomainID]
	categoryTitle := titles.CategoryTitles[job.CategoryID]
	domainSkillIDs := titles.DomainSkills[job.DomainID]

	// Rule 1: domain match via domain id, domain title, or a skill in the domain.
	for _, ref := range tech.Skills {
		if ref.DomainID != nil && *ref.DomainID == job.DomainID {
			return true, "skill entry references job domain"
		}
		if domainTitle != "" && strings.EqualFold(ref.Title, domainTitle) {
			return true, "skill title matches domain: " + domainTitle
		}
		if ref.SkillID != nil {
			for _, skillID := range domainSkillIDs {
				if *ref.SkillID == skillID {
					return true, "skill belongs to job domain"
				}
			}
		}
	}

	// Rule 2: category labels against resolved domain/category titles.
	for _, label := range tech.CategoryLabels {
		trimmed := strings.TrimSpace(label)
		if trimmed == "" {
			continue
		}
		if domainTitle != "" && containsFold(trimmed, domainTitle) {
			return true, "category label covers domain: " + domainTitle
		}
		if categoryTitle != "" && strings.EqualFold(trimmed, categoryTitle) {
			return true, "category label matches category: " + categoryTitle
		}
	}

	// Rule 3: explicit skill-id match, direct or by resolved title.
	if job.SkillID != nil {
		skillTitle := titles.SkillTitles[*job.SkillID]
		for _, ref := range tech.Skills {
			if ref.SkillID != nil && *ref.SkillID == *job.SkillID {
				return true, "skill id match"
			}
			if skillTitle != "" && strings.EqualFold(ref.Title, skillTitle) {
				return true, "skill title match: " + skillTitle
			}
		}
	}

	// Rule 4: a technician with no configured skills matches a job with no
	// explicit skill requirement. Skill-less profiles are not stranded.
	if len(tech.Skills) == 0 && job.SkillID == nil {
		return true, "no skill requirement and no configured skills"
	}

	return false, ""
}

// containsFold reports whether either string contains the other,
// case-insensitively.
func containsFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	return strings.Contains(la, lb) || strings.Contains(lb, la)
}
