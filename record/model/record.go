package model

import "time"

// EntityType identifies which kind of local record is being synchronized
type EntityType string

const (
	EntityTypeContact      EntityType = "contact"
	EntityTypeOrganization EntityType = "organization"
)

// Valid reports whether the entity type is one of the closed set
func (et EntityType) Valid() bool {
	switch et {
	case EntityTypeContact, EntityTypeOrganization:
		return true
	}
	return false
}

// SyncStatus per-record synchronization status
type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusPending  SyncStatus = "pending"
	SyncStatusConflict SyncStatus = "conflict"
	SyncStatusDisabled SyncStatus = "disabled"
)

// Valid reports whether the sync status is one of the closed set
func (s SyncStatus) Valid() bool {
	switch s {
	case SyncStatusSynced, SyncStatusPending, SyncStatusConflict, SyncStatusDisabled:
		return true
	}
	return false
}

// SyncDirection which side is allowed to push for a record
type SyncDirection string

const (
	SyncDirectionBidirectional SyncDirection = "bidirectional"
	SyncDirectionToExternal    SyncDirection = "to_external"
	SyncDirectionToLocal       SyncDirection = "to_local"
	SyncDirectionNone          SyncDirection = "none"
)

// Valid reports whether the sync direction is one of the closed set
func (d SyncDirection) Valid() bool {
	switch d {
	case SyncDirectionBidirectional, SyncDirectionToExternal,
		SyncDirectionToLocal, SyncDirectionNone:
		return true
	}
	return false
}

// AllowsPush reports whether local changes may be pushed to the external side
func (d SyncDirection) AllowsPush() bool {
	return d == SyncDirectionBidirectional || d == SyncDirectionToExternal
}

// AllowsPull reports whether external changes may be applied locally
func (d SyncDirection) AllowsPull() bool {
	return d == SyncDirectionBidirectional || d == SyncDirectionToLocal
}

// SyncState the sync related columns embedded on each syncable record
type SyncState struct {
	EntityType    EntityType
	EntityID      int
	SyncEnabled   bool
	SyncStatus    SyncStatus
	SyncDirection SyncDirection
	ExternalID    *string
	LastSynced    *time.Time
}
