// Package types provides type definitions for structured data used throughout the linkedin-optimizer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Profile field keys, shared by the JSON record, imports and prompt templates.
const (
	FieldTargetRole = "target_role"
	FieldHeadline   = "headline"
	FieldAbout      = "about"
	FieldExperience = "experience"
	FieldSkills     = "skills"
)

// ProfileFields lists the free-text profile fields in display order.
var ProfileFields = []string{FieldTargetRole, FieldHeadline, FieldAbout, FieldExperience, FieldSkills}

// Profile is the LinkedIn profile being optimized for a target remote role.
type Profile struct {
	TargetRole string    `json:"target_role" validate:"required"`
	Headline   string    `json:"headline"`
	About      string    `json:"about"`
	Experience string    `json:"experience"`
	Skills     string    `json:"skills"`
	Timestamp  time.Time `json:"timestamp,omitzero"`
}

// Validate checks the profile is ready for a pipeline run.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// IsEmpty reports whether no profile field has been filled in.
func (p *Profile) IsEmpty() bool {
	if p == nil {
		return true
	}
	for _, key := range ProfileFields {
		if p.Field(key) != "" {
			return false
		}
	}
	return true
}

// Field returns the value of a named profile field, or "" for unknown keys.
func (p *Profile) Field(key string) string {
	switch key {
	case FieldTargetRole:
		return p.TargetRole
	case FieldHeadline:
		return p.Headline
	case FieldAbout:
		return p.About
	case FieldExperience:
		return p.Experience
	case FieldSkills:
		return p.Skills
	}
	return ""
}

// SetField sets a named profile field. Unknown keys are ignored and reported as false.
func (p *Profile) SetField(key, value string) bool {
	switch key {
	case FieldTargetRole:
		p.TargetRole = value
	case FieldHeadline:
		p.Headline = value
	case FieldAbout:
		p.About = value
	case FieldExperience:
		p.Experience = value
	case FieldSkills:
		p.Skills = value
	default:
		return false
	}
	return true
}

// Merge applies a partial update: only keys present in fields overwrite the profile.
// It returns the keys that were applied.
func (p *Profile) Merge(fields map[string]string) []string {
	applied := make([]string, 0, len(fields))
	for _, key := range ProfileFields {
		value, ok := fields[key]
		if !ok {
			continue
		}
		if p.SetField(key, value) {
			applied = append(applied, key)
		}
	}
	return applied
}

// ProfilePreview is the short summary shown before a run.
type ProfilePreview struct {
	TargetRole string `json:"target_role"`
	Headline   string `json:"headline"`
	About      string `json:"about"`
	Skills     string `json:"skills"`
}

// Preview returns a truncated view of the profile.
func (p *Profile) Preview() ProfilePreview {
	target := p.TargetRole
	if target == "" {
		target = "Not set"
	}
	return ProfilePreview{
		TargetRole: target,
		Headline:   Truncate(p.Headline, 100),
		About:      Truncate(p.About, 200),
		Skills:     Truncate(p.Skills, 100),
	}
}

// Truncate returns the first n characters (runes) of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
