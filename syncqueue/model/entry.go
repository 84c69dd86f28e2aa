package model

import (
	"time"

	recordmodel "github.com/harborview/crmsync/record/model"
)

// Status lifecycle state of a queue entry
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Valid reports whether the status is one of the closed set
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Direction which way a queue entry moves data
type Direction string

const (
	DirectionToExternal Direction = "to_external"
	DirectionToLocal    Direction = "to_local"
)

// Valid reports whether the direction is one of the closed set
func (d Direction) Valid() bool {
	switch d {
	case DirectionToExternal, DirectionToLocal:
		return true
	}
	return false
}

// Operation the kind of change being propagated
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether the operation is one of the closed set
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Entry one unit of pending synchronization work. Entries are append only;
// completed and exhausted rows are retained for audit (see ArchiveBefore for
// the operator driven retention pass).
type Entry struct {
	ID           int
	EntityType   recordmodel.EntityType
	EntityID     int
	Direction    Direction
	Operation    Operation
	Payload      map[string]interface{}
	Status       Status
	Attempts     int
	MaxAttempts  int
	LastAttempt  *time.Time
	NextRetry    *time.Time
	ErrorMessage string
	CreatedOn    time.Time
	UpdatedOn    time.Time
}

// Stats queue entry counts by status and by entity type/status
type Stats struct {
	Total        int                       `json:"total"`
	ByStatus     map[string]int            `json:"by_status"`
	ByEntityType map[string]map[string]int `json:"by_entity_type"`
}
