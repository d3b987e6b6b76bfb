package matching

import (
	"testing"

	"github.com/google/uuid"
)

func TestParseSkillRefsHeterogeneousShapes(t *testing.T) {
	skillID := uuid.New()
	domainID := uuid.New()

	payload := []byte(`[
		{"skillId": "` + skillID.String() + `", "domainId": "` + domainID.String() + `"},
		{"skill": "AC Repair"},
		"` + skillID.String() + `",
		"Plumbing",
		{"title": "Geyser Installation"},
		{},
		null,
		42
	]`)

	refs := ParseSkillRefs(payload)
	if len(refs) != 5 {
		t.Fatalf("expected 5 parsed refs, got %d", len(refs))
	}

	if refs[0].SkillID == nil || *refs[0].SkillID != skillID {
		t.Errorf("ref 0: skill id not parsed")
	}
	if refs[0].DomainID == nil || *refs[0].DomainID != domainID {
		t.Errorf("ref 0: domain id not parsed")
	}
	if refs[1].Title != "AC Repair" {
		t.Errorf("ref 1: title = %q", refs[1].Title)
	}
	if refs[2].SkillID == nil || *refs[2].SkillID != skillID {
		t.Errorf("ref 2: bare uuid string not parsed as skill id")
	}
	if refs[3].Title != "Plumbing" {
		t.Errorf("ref 3: bare string title = %q", refs[3].Title)
	}
	if refs[4].Title != "Geyser Installation" {
		t.Errorf("ref 4: title = %q", refs[4].Title)
	}
}

func TestParseSkillRefsMalformedInput(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte(""),
		[]byte("not json"),
		[]byte("{}"),
		[]byte("[]"),
	}

	for _, payload := range cases {
		if refs := ParseSkillRefs(payload); len(refs) != 0 {
			t.Errorf("payload %q: expected no refs, got %d", payload, len(refs))
		}
	}

	// A single object outside an array still parses.
	refs := ParseSkillRefs([]byte(`{"skill": "Welding"}`))
	if len(refs) != 1 || refs[0].Title != "Welding" {
		t.Fatalf("single object payload not tolerated: %+v", refs)
	}
}
