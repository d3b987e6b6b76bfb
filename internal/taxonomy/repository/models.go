package repository

import "github.com/google/uuid"

// ServiceDomain is a top-level trade grouping (e.g. "Electrical", "HVAC").
type ServiceDomain struct {
	ID    uuid.UUID
	Title string
}

// ServiceCategory is a category or subcategory within a domain. A subcategory
// carries a non-nil ParentID. WarrantyDays may be unset at either level; the
// effective value resolves subcategory first, then category.
type ServiceCategory struct {
	ID           uuid.UUID
	DomainID     uuid.UUID
	ParentID     *uuid.UUID
	Title        string
	WarrantyDays *int
}

// Skill is a concrete competency, optionally attached to a domain.
type Skill struct {
	ID       uuid.UUID
	DomainID *uuid.UUID
	Title    string
}
