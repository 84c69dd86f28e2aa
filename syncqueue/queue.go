// Package syncqueue implements the durable, retryable work list that drives
// outbound and inbound sync operations. Entries are claimed with an atomic
// conditional state transition so concurrent drain passes never double
// process one entry, and failed entries are retried with a capped
// exponential backoff until max attempts is reached.
package syncqueue

import (
	"fmt"

	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	recordsql "github.com/harborview/crmsync/record/sqlmodel"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue/model"
	"github.com/harborview/crmsync/syncqueue/sqlmodel"
	"github.com/rs/zerolog/log"
)

const (
	ECodeQU0101 = e.CodeQU01 + "01"
	ECodeQU0102 = e.CodeQU01 + "02"
	ECodeQU0103 = e.CodeQU01 + "03"
	ECodeQU0104 = e.CodeQU01 + "04"
	ECodeQU0105 = e.CodeQU01 + "05"
)

// Enqueue inserts a new pending entry with attempts=0 and next_retry=now.
// The payload is optional and carries a field map snapshot when the caller
// wants the operation executed against captured values rather than a fresh
// read.
func Enqueue(db *gosql.Connection, entityType recordmodel.EntityType,
	entityID int, direction model.Direction, operation model.Operation,
	payload map[string]interface{}) (entry *model.Entry, err error) {

	if !entityType.Valid() {
		return nil, e.N(ECodeQU0101,
			fmt.Sprintf("invalid entity type: %s", entityType))
	}
	if !direction.Valid() {
		return nil, e.N(ECodeQU0102,
			fmt.Sprintf("invalid direction: %s", direction))
	}
	if !operation.Valid() {
		return nil, e.N(ECodeQU0103,
			fmt.Sprintf("invalid operation: %s", operation))
	}

	entry = &model.Entry{
		EntityType:  entityType,
		EntityID:    entityID,
		Direction:   direction,
		Operation:   operation,
		Payload:     payload,
		Status:      model.StatusPending,
		MaxAttempts: DefaultMaxAttempts,
	}

	entry.ID, err = sqlmodel.EntryInsert(db, entry)
	if err != nil {
		return nil, e.W(err, ECodeQU0104)
	}

	return entry, nil
}

// EnqueueIfEnabled inserts a new pending entry only if the record has sync
// enabled and its configured direction permits the requested one. Returns a
// nil entry (and nil error) when queue creation is suppressed.
func EnqueueIfEnabled(db *gosql.Connection, entityType recordmodel.EntityType,
	entityID int, direction model.Direction, operation model.Operation,
	payload map[string]interface{}) (entry *model.Entry, err error) {

	ss, err := recordsql.SyncStateGet(db, entityType, entityID)
	if err != nil {
		return nil, e.W(err, ECodeQU0105)
	}

	if !ss.SyncEnabled || ss.SyncDirection == recordmodel.SyncDirectionNone {
		log.Debug().Msgf("sync disabled, suppressing queue entry for %s %d",
			entityType, entityID)
		return nil, nil
	}

	if direction == model.DirectionToExternal && !ss.SyncDirection.AllowsPush() {
		return nil, nil
	}
	if direction == model.DirectionToLocal && !ss.SyncDirection.AllowsPull() {
		return nil, nil
	}

	return Enqueue(db, entityType, entityID, direction, operation, payload)
}
