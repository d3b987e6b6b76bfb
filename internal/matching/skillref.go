package matching

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// SkillRef is the normalized form of a technician skill entry. Historical
// payloads are heterogeneous: objects carrying skillId/domainId/skill fields,
// or bare strings. Parsing happens once at the boundary so the matching rules
// only ever see this shape.
type SkillRef struct {
	SkillID  *uuid.UUID
	DomainID *uuid.UUID
	Title    string
}

type rawSkillRef struct {
	SkillID     string `json:"skillId"`
	DomainID    string `json:"domainId"`
	Skill       string `json:"skill"`
	Title       string `json:"title"`
	DomainTitle string `json:"domainTitle"`
}

// ParseSkillRefs decodes a stored skill payload into normalized SkillRefs.
// Unrecognized entries are skipped, never raised: a malformed skill entry
// must not strand an otherwise matchable technician.
func ParseSkillRefs(payload []byte) []SkillRef {
	if len(payload) == 0 {
		return nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(payload, &items); err != nil {
		// A single object or bare string instead of an array.
		if ref, ok := parseOne(payload); ok {
			return []SkillRef{ref}
		}
		return nil
	}

	refs := make([]SkillRef, 0, len(items))
	for _, item := range items {
		if ref, ok := parseOne(item); ok {
			refs = append(refs, ref)
		}
	}
	return refs
}

func parseOne(item []byte) (SkillRef, bool) {
	trimmed := strings.TrimSpace(string(item))
	if trimmed == "" || trimmed == "null" {
		return SkillRef{}, false
	}

	// Bare string: either a skill UUID or a free-text title.
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(item, &text); err != nil {
			return SkillRef{}, false
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return SkillRef{}, false
		}
		if id, err := uuid.Parse(text); err == nil {
			return SkillRef{SkillID: &id}, true
		}
		return SkillRef{Title: text}, true
	}

	var raw rawSkillRef
	if err := json.Unmarshal(item, &raw); err != nil {
		return SkillRef{}, false
	}

	ref := SkillRef{}
	if id, err := uuid.Parse(strings.TrimSpace(raw.SkillID)); err == nil {
		ref.SkillID = &id
	}
	if id, err := uuid.Parse(strings.TrimSpace(raw.DomainID)); err == nil {
		ref.DomainID = &id
	}

	switch {
	case strings.TrimSpace(raw.Skill) != "":
		ref.Title = strings.TrimSpace(raw.Skill)
	case strings.TrimSpace(raw.Title) != "":
		ref.Title = strings.TrimSpace(raw.Title)
	case strings.TrimSpace(raw.DomainTitle) != "":
		ref.Title = strings.TrimSpace(raw.DomainTitle)
	}

	if ref.SkillID == nil && ref.DomainID == nil && ref.Title == "" {
		return SkillRef{}, false
	}
	return ref, true
}
