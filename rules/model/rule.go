package model

import (
	"time"

	recordmodel "github.com/harborview/crmsync/record/model"
)

// EntityTypeWildcard matches any entity type
const EntityTypeWildcard = "*"

// PreferredSource which side a rule prefers when values diverge
type PreferredSource string

const (
	PreferredSourceLocal    PreferredSource = "local"
	PreferredSourceExternal PreferredSource = "external"
)

// Valid reports whether the preferred source is one of the closed set
func (ps PreferredSource) Valid() bool {
	switch ps {
	case PreferredSourceLocal, PreferredSourceExternal:
		return true
	}
	return false
}

// Rule an administrator configured auto resolution policy. FieldName is nil
// for entity wide rules. Higher priority wins among matches; ties fall back
// to creation order (earlier wins).
type Rule struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	EntityType      string          `json:"entity_type"`
	FieldName       *string         `json:"field_name"`
	PreferredSource PreferredSource `json:"preferred_source"`
	IsEnabled       bool            `json:"is_enabled"`
	Priority        int             `json:"priority"`
	CreatedOn       time.Time       `json:"created_at"`
	CreatedBy       string          `json:"created_by"`
}

// AppliesTo reports whether the rule covers the entity type, either exactly
// or through the wildcard
func (r *Rule) AppliesTo(et recordmodel.EntityType) bool {
	return r.EntityType == string(et) || r.EntityType == EntityTypeWildcard
}
