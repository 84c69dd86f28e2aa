package model

import (
	"time"

	recordmodel "github.com/harborview/crmsync/record/model"
)

// ResolutionType how a conflict was (or should be) settled
type ResolutionType string

const (
	ResolutionKeepLocal    ResolutionType = "keep_local"
	ResolutionKeepExternal ResolutionType = "keep_external"
	ResolutionMerge        ResolutionType = "merge"
)

// Valid reports whether the resolution type is one of the closed set
func (rt ResolutionType) Valid() bool {
	switch rt {
	case ResolutionKeepLocal, ResolutionKeepExternal, ResolutionMerge:
		return true
	}
	return false
}

// Merge selection values, per field: keep the local value or take the
// external one
const (
	MergeSelectLocal    = "local"
	MergeSelectExternal = "external"
)

// Conflict a detected divergence between a local record and its external
// counterpart. At most one unresolved conflict exists per entity; resolved
// rows are retained for audit.
type Conflict struct {
	ID             int                    `json:"id"`
	EntityType     recordmodel.EntityType `json:"entity_type"`
	EntityID       int                    `json:"entity_id"`
	ExternalItemID string                 `json:"external_item_id"`
	LocalData      map[string]interface{} `json:"local_data"`
	ExternalData   map[string]interface{} `json:"external_data"`
	ConflictFields []string               `json:"conflict_fields"`
	DetectedAt     time.Time              `json:"detected_at"`
	ResolvedAt     *time.Time             `json:"resolved_at"`
	ResolutionType *ResolutionType        `json:"resolution_type"`
	ResolvedBy     *string                `json:"resolved_by"`
}

// Resolved reports whether the conflict has been settled
func (c *Conflict) Resolved() bool {
	return c.ResolvedAt != nil
}
