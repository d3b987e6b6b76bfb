package matching

import (
	"math"
	"testing"

	"github.com/google/uuid"
)

func f64(v float64) *float64 { return &v }

func TestHaversineSymmetry(t *testing.T) {
	pairs := [][4]float64{
		{12.9716, 77.5946, 19.0760, 72.8777}, // Bangalore <-> Mumbai
		{0.1, 0.1, -45.0, 170.0},
		{52.37, 4.89, 52.37, 4.89},
		{-33.86, 151.20, 51.50, -0.12},
	}

	for _, p := range pairs {
		ab := Haversine(p[0], p[1], p[2], p[3])
		ba := Haversine(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-9 {
			t.Errorf("Haversine not symmetric: %f vs %f for %v", ab, ba, p)
		}
	}

	if d := Haversine(12.9716, 77.5946, 12.9716, 77.5946); d != 0 {
		t.Errorf("Haversine(a,a) = %f, want 0", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Bangalore to Mumbai is roughly 845 km great-circle.
	d := Haversine(12.9716, 77.5946, 19.0760, 72.8777)
	if d < 800 || d > 900 {
		t.Fatalf("Bangalore-Mumbai distance = %.1f km, want ~845 km", d)
	}
}

func TestMatchSamePointWithinRadius(t *testing.T) {
	job := JobSpec{
		Latitude:  f64(12.9716),
		Longitude: f64(77.5946),
		City:      "Bangalore",
		DomainID:  uuid.New(),
	}
	tech := TechProfile{
		ID:              uuid.New(),
		Latitude:        f64(12.9716),
		Longitude:       f64(77.5946),
		ServiceRadiusKm: f64(50),
		Skills:          []SkillRef{{DomainID: &job.DomainID}},
	}

	got := Match(job, []TechProfile{tech}, Titles{})
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].TechnicianID != tech.ID {
		t.Fatalf("wrong candidate: %s", got[0].TechnicianID)
	}
}

func TestMatchOutsideRadiusExcluded(t *testing.T) {
	domain := uuid.New()
	job := JobSpec{Latitude: f64(12.9716), Longitude: f64(77.5946), DomainID: domain}
	// Mumbai is ~845 km from Bangalore, well outside a 50 km radius.
	tech := TechProfile{
		ID:        uuid.New(),
		Latitude:  f64(19.0760),
		Longitude: f64(72.8777),
		Skills:    []SkillRef{{DomainID: &domain}},
	}

	if got := Match(job, []TechProfile{tech}, Titles{}); len(got) != 0 {
		t.Fatalf("expected no candidates, got %d", len(got))
	}
}

func TestMatchCityNameCaseInsensitive(t *testing.T) {
	domain := uuid.New()
	job := JobSpec{City: "Mumbai", DomainID: domain}
	tech := TechProfile{
		ID:        uuid.New(),
		PlaceName: "  mumbai ",
		Skills:    []SkillRef{{DomainID: &domain}},
	}

	got := Match(job, []TechProfile{tech}, Titles{})
	if len(got) != 1 {
		t.Fatalf("expected city match, got %d candidates", len(got))
	}
}

func TestMatchFailOpenNoLocationEitherSide(t *testing.T) {
	domain := uuid.New()
	job := JobSpec{DomainID: domain}
	tech := TechProfile{ID: uuid.New(), Skills: []SkillRef{{DomainID: &domain}}}

	got := Match(job, []TechProfile{tech}, Titles{})
	if len(got) != 1 {
		t.Fatalf("expected fail-open location match, got %d", len(got))
	}
}

func TestMatchZeroCoordinatesTreatedAsAbsent(t *testing.T) {
	domain := uuid.New()
	// (0,0) is the unset-column artifact, not a real location.
	job := JobSpec{Latitude: f64(0), Longitude: f64(0), DomainID: domain}
	tech := TechProfile{
		ID:        uuid.New(),
		Latitude:  f64(0),
		Longitude: f64(0),
		Skills:    []SkillRef{{DomainID: &domain}},
	}

	got := Match(job, []TechProfile{tech}, Titles{})
	if len(got) != 1 {
		t.Fatalf("expected (0,0) to fail open, got %d candidates", len(got))
	}
}

func TestMatchTechnicianWithoutLocationFailsOpen(t *testing.T) {
	domain := uuid.New()
	job := JobSpec{Latitude: f64(12.9716), Longitude: f64(77.5946), DomainID: domain}
	tech := TechProfile{ID: uuid.New(), Skills: []SkillRef{{DomainID: &domain}}}

	got := Match(job, []TechProfile{tech}, Titles{})
	if len(got) != 1 {
		t.Fatalf("expected fail-open for technician without location, got %d", len(got))
	}
}

func TestSkillRuleLadder(t *testing.T) {
	domainID := uuid.New()
	categoryID := uuid.New()
	skillID := uuid.New()
	domainSkill := uuid.New()

	titles := Titles{
		DomainTitles:   map[uuid.UUID]string{domainID: "Electrical"},
		CategoryTitles: map[uuid.UUID]string{categoryID: "Wiring Repair"},
		SkillTitles:    map[uuid.UUID]string{skillID: "Panel Upgrade"},
		DomainSkills:   map[uuid.UUID][]uuid.UUID{domainID: {domainSkill}},
	}
	job := JobSpec{DomainID: domainID, CategoryID: categoryID, SkillID: &skillID}

	cases := []struct {
		name string
		tech TechProfile
		want bool
	}{
		{"domain id match", TechProfile{Skills: []SkillRef{{DomainID: &domainID}}}, true},
		{"domain title match", TechProfile{Skills: []SkillRef{{Title: "electrical"}}}, true},
		{"skill in domain", TechProfile{Skills: []SkillRef{{SkillID: &domainSkill}}}, true},
		{"category label substring", TechProfile{
			Skills:         []SkillRef{{Title: "unrelated"}},
			CategoryLabels: []string{"Electrical & Solar"},
		}, true},
		{"category label exact category", TechProfile{
			Skills:         []SkillRef{{Title: "unrelated"}},
			CategoryLabels: []string{"wiring repair"},
		}, true},
		{"explicit skill id", TechProfile{Skills: []SkillRef{{SkillID: &skillID}}}, true},
		{"skill title match", TechProfile{Skills: []SkillRef{{Title: "panel upgrade"}}}, true},
		{"no overlap", TechProfile{Skills: []SkillRef{{Title: "plumbing"}}}, false},
	}

	for _, tc := range cases {
		got, _ := skillMatch(job, tc.tech, titles)
		if got != tc.want {
			t.Errorf("%s: skillMatch = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSkillFallbackForUnconfiguredTechnician(t *testing.T) {
	job := JobSpec{DomainID: uuid.New()}
	tech := TechProfile{ID: uuid.New()}

	ok, _ := skillMatch(job, tech, Titles{})
	if !ok {
		t.Fatal("expected skill-less technician to match job without skill requirement")
	}

	skillID := uuid.New()
	jobWithSkill := JobSpec{DomainID: uuid.New(), SkillID: &skillID}
	ok, _ = skillMatch(jobWithSkill, tech, Titles{})
	if ok {
		t.Fatal("expected skill-less technician to NOT match job with explicit skill requirement")
	}
}

func TestMatchOrderIndependence(t *testing.T) {
	domain := uuid.New()
	job := JobSpec{City: "Pune", DomainID: domain}

	techs := []TechProfile{
		{ID: uuid.New(), PlaceName: "Pune", Skills: []SkillRef{{DomainID: &domain}}},
		{ID: uuid.New(), PlaceName: "Nagpur", Skills: []SkillRef{{DomainID: &domain}}},
		{ID: uuid.New(), PlaceName: "pune", Skills: []SkillRef{{DomainID: &domain}}},
	}

	forward := Match(job, techs, Titles{})
	reversed := Match(job, []TechProfile{techs[2], techs[1], techs[0]}, Titles{})

	if len(forward) != 2 || len(reversed) != 2 {
		t.Fatalf("expected 2 candidates both ways, got %d and %d", len(forward), len(reversed))
	}

	seen := map[uuid.UUID]bool{}
	for _, c := range forward {
		seen[c.TechnicianID] = true
	}
	for _, c := range reversed {
		if !seen[c.TechnicianID] {
			t.Fatalf("candidate sets differ between orderings")
		}
	}
}
