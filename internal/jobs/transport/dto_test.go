package transport

import (
	"testing"

	"github.com/google/uuid"

	"fieldserve_backend/internal/jobs/domain"
	"fieldserve_backend/internal/jobs/repository"
	"fieldserve_backend/platform/httpkit"
	"fieldserve_backend/platform/validator"
)

func sampleJob(status domain.Status, dealerID uuid.UUID, technicianID *uuid.UUID) repository.Job {
	return repository.Job{
		ID:            uuid.New(),
		JobNumber:     "JOB-2026-0012",
		DealerID:      dealerID,
		TechnicianID:  technicianID,
		Status:        status,
		CustomerName:  "Asha Rao",
		CustomerPhone: "+919876543210",
	}
}

func TestContactRedaction(t *testing.T) {
	dealerID := uuid.New()
	techID := uuid.New()
	otherTechID := uuid.New()

	tests := []struct {
		name       string
		status     domain.Status
		viewerID   uuid.UUID
		viewerRole string
		wantPhone  bool
	}{
		{"dealer always sees own job contact", domain.StatusPending, dealerID, httpkit.RoleDealer, true},
		{"admin always sees contact", domain.StatusPending, uuid.New(), httpkit.RoleAdmin, true},
		{"browsing technician sees nothing", domain.StatusPending, otherTechID, httpkit.RoleTechnician, false},
		{"soft-locked technician still redacted", domain.StatusSoftLocked, techID, httpkit.RoleTechnician, false},
		{"assigned technician sees contact", domain.StatusAssigned, techID, httpkit.RoleTechnician, true},
		{"in-progress technician sees contact", domain.StatusInProgress, techID, httpkit.RoleTechnician, true},
		{"other technician redacted even when assigned", domain.StatusAssigned, otherTechID, httpkit.RoleTechnician, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var assignee *uuid.UUID
			if tt.status != domain.StatusPending {
				assignee = &techID
			}
			view := ToJobView(sampleJob(tt.status, dealerID, assignee), tt.viewerID, tt.viewerRole)

			gotPhone := view.CustomerPhone != ""
			if gotPhone != tt.wantPhone {
				t.Errorf("phone visible = %v, want %v", gotPhone, tt.wantPhone)
			}
			if (view.CustomerName != "") != tt.wantPhone {
				t.Errorf("name visibility should track phone visibility")
			}
		})
	}
}

func validPostJobRequest() PostJobRequest {
	return PostJobRequest{
		Title:         "AC gas refill",
		Description:   "Split AC cooling poorly, likely low on refrigerant.",
		WorkDetail:    "Check for leaks, vacuum the lines, refill R32 gas and verify cooling.",
		Address:       "14 MG Road, 2nd floor",
		City:          "Bengaluru",
		State:         "Karnataka",
		Pincode:       "560001",
		DomainID:      uuid.New(),
		CategoryID:    uuid.New(),
		CustomerName:  "Asha Rao",
		CustomerPhone: "+919876543210",
		Amount:        250000,
	}
}

func TestPostJobRequestValidation(t *testing.T) {
	val := validator.New()

	if err := val.Struct(validPostJobRequest()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*PostJobRequest)
	}{
		{"missing work detail", func(r *PostJobRequest) { r.WorkDetail = "" }},
		{"work detail too short", func(r *PostJobRequest) { r.WorkDetail = "fix" }},
		{"missing address", func(r *PostJobRequest) { r.Address = "" }},
		{"missing state", func(r *PostJobRequest) { r.State = "" }},
		{"missing pincode", func(r *PostJobRequest) { r.Pincode = "" }},
		{"pincode wrong length", func(r *PostJobRequest) { r.Pincode = "5600" }},
		{"pincode not numeric", func(r *PostJobRequest) { r.Pincode = "56OOO1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPostJobRequest()
			tt.mutate(&req)
			if err := val.Struct(req); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestAddressTravelsWithContact(t *testing.T) {
	dealerID := uuid.New()
	job := sampleJob(domain.StatusPending, dealerID, nil)
	job.Address = "14 MG Road, 2nd floor"
	job.City = "Bengaluru"
	job.State = "Karnataka"
	job.Pincode = "560001"

	browsing := ToJobView(job, uuid.New(), httpkit.RoleTechnician)
	if browsing.Address != "" {
		t.Errorf("browsing technician should not see the street address, got %q", browsing.Address)
	}
	if browsing.City == "" || browsing.State == "" || browsing.Pincode == "" {
		t.Error("city, state and pincode stay visible while browsing")
	}

	owner := ToJobView(job, dealerID, httpkit.RoleDealer)
	if owner.Address != job.Address {
		t.Errorf("dealer address = %q, want %q", owner.Address, job.Address)
	}
}

func TestTimeoutReasonsNeverNull(t *testing.T) {
	view := ToJobView(sampleJob(domain.StatusPending, uuid.New(), nil), uuid.New(), httpkit.RoleTechnician)
	if view.TimeoutReasons == nil {
		t.Fatal("timeout reasons should serialize as an empty array, not null")
	}
}
