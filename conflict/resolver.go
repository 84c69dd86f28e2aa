package conflict

import (
	"fmt"

	"github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/conflict/sqlmodel"
	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	recordsql "github.com/harborview/crmsync/record/sqlmodel"
	"github.com/harborview/crmsync/rules"
	rulesmodel "github.com/harborview/crmsync/rules/model"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue"
	queuemodel "github.com/harborview/crmsync/syncqueue/model"
	"github.com/rs/zerolog/log"
)

const (
	ECodeCF0301 = e.CodeCF03 + "01"
	ECodeCF0302 = e.CodeCF03 + "02"
	ECodeCF0303 = e.CodeCF03 + "03"
	ECodeCF0304 = e.CodeCF03 + "04"
	ECodeCF0305 = e.CodeCF03 + "05"
	ECodeCF0306 = e.CodeCF03 + "06"
	ECodeCF0307 = e.CodeCF03 + "07"
	ECodeCF0308 = e.CodeCF03 + "08"
)

// Store call indirections, swapped for in-memory fakes in tests
var (
	conflictGetByID         = sqlmodel.ConflictGetByID
	conflictInsert          = sqlmodel.ConflictInsert
	conflictGetOpenByEntity = sqlmodel.ConflictGetOpenByEntity
	conflictUpdateSnapshots = sqlmodel.ConflictUpdateSnapshots
	conflictMarkResolved    = sqlmodel.ConflictMarkResolved
	applyRecordField        = recordsql.ApplyField
	markRecordSynced        = recordsql.MarkSynced
	setRecordSyncStatus     = recordsql.SetSyncStatus
	enqueueEntry            = syncqueue.Enqueue
)

// MergeExternalFields validates merge selections against the conflicting
// fields and returns the subset of fields whose external value should be
// applied locally, in conflict field order. Fields selected local (or left
// unselected) are untouched. Selections naming a field outside the conflict
// or using an unknown side are a caller contract violation.
func MergeExternalFields(conflictFields []string,
	selections map[string]string) (externalFields []string, err error) {

	if len(selections) == 0 {
		return nil, e.N(ECodeCF0301, e.MsgMergeSelectionsRequired)
	}

	inConflict := make(map[string]bool, len(conflictFields))
	for _, f := range conflictFields {
		inConflict[f] = true
	}

	for f, side := range selections {
		if !inConflict[f] {
			return nil, e.N(ECodeCF0301,
				fmt.Sprintf("merge selection for non-conflicting field: %s", f))
		}
		if side != model.MergeSelectLocal && side != model.MergeSelectExternal {
			return nil, e.N(ECodeCF0301,
				fmt.Sprintf("invalid merge selection %q for field %s", side, f))
		}
	}

	for _, f := range conflictFields {
		if selections[f] == model.MergeSelectExternal {
			externalFields = append(externalFields, f)
		}
	}

	return externalFields, nil
}

// applyExternalFields writes the external values for the passed fields onto
// the local record, normalizing wrapped shapes first
func applyExternalFields(db *gosql.Connection, c *model.Conflict,
	fields []string) (err error) {
	for _, f := range fields {
		if err := applyRecordField(db, c.EntityType, c.EntityID, f,
			DriverValue(c.ExternalData[f])); err != nil {
			return e.W(err, ECodeCF0302)
		}
	}

	return nil
}

// Resolve applies a resolution to a conflict and settles the record's sync
// state. Resolving an already resolved conflict is an idempotent no-op that
// returns the stored row, because resolution may be retried after a
// delivery failure on the re-enqueued push. A merge without selections
// fails fast with no state mutation.
func Resolve(db *gosql.Connection, conflictID int,
	resolutionType model.ResolutionType, resolvedBy *string,
	mergeSelections map[string]string) (c *model.Conflict, err error) {

	c, err = conflictGetByID(db, conflictID)
	if err != nil {
		return nil, e.W(err, ECodeCF0303)
	}

	if c.Resolved() {
		return c, nil
	}

	switch resolutionType {
	case model.ResolutionKeepLocal:
		// Local wins: push the current local values back out, nothing to
		// change locally
		if _, err := enqueueEntry(db, c.EntityType, c.EntityID,
			queuemodel.DirectionToExternal, queuemodel.OperationUpdate,
			nil); err != nil {
			return nil, e.W(err, ECodeCF0304)
		}

	case model.ResolutionKeepExternal:
		if err := applyExternalFields(db, c, c.ConflictFields); err != nil {
			return nil, e.W(err, ECodeCF0305)
		}

	case model.ResolutionMerge:
		externalFields, err := MergeExternalFields(c.ConflictFields, mergeSelections)
		if err != nil {
			return nil, e.W(err, ECodeCF0306)
		}
		if err := applyExternalFields(db, c, externalFields); err != nil {
			return nil, e.W(err, ECodeCF0306)
		}
		// Push the merged state so the external side converges on it
		if _, err := enqueueEntry(db, c.EntityType, c.EntityID,
			queuemodel.DirectionToExternal, queuemodel.OperationUpdate,
			nil); err != nil {
			return nil, e.W(err, ECodeCF0306)
		}

	default:
		return nil, e.N(ECodeCF0307,
			fmt.Sprintf("%s: %s", e.MsgUnknownResolutionType, resolutionType))
	}

	updated, err := conflictMarkResolved(db, c.ID, resolutionType, resolvedBy)
	if err != nil {
		return nil, e.W(err, ECodeCF0308)
	}
	if !updated {
		// Another resolver finished first; return its result
		return conflictGetByID(db, c.ID)
	}

	if resolutionType == model.ResolutionKeepExternal {
		err = markRecordSynced(db, c.EntityType, c.EntityID)
	} else {
		err = setRecordSyncStatus(db, c.EntityType, c.EntityID,
			recordmodel.SyncStatusSynced)
	}
	if err != nil {
		return nil, e.W(err, ECodeCF0308)
	}

	by := "auto"
	if resolvedBy != nil {
		by = *resolvedBy
	}
	log.Info().Msgf("conflict %d resolved (%s) by %s", c.ID, resolutionType, by)

	return conflictGetByID(db, c.ID)
}

// AutoResolve applies a rule engine verdict to a fresh divergence without
// persisting a conflict row. keep_external copies the conflicting external
// values onto the record; keep_local re-enqueues a push so the external
// side is overwritten with the local values.
func AutoResolve(db *gosql.Connection, entityType recordmodel.EntityType,
	entityID int, conflictFields []string,
	externalData map[string]interface{},
	verdict *rules.Verdict) (resolutionType model.ResolutionType, err error) {

	switch verdict.Source {
	case rulesmodel.PreferredSourceExternal:
		resolutionType = model.ResolutionKeepExternal
		for _, f := range conflictFields {
			if err := applyRecordField(db, entityType, entityID, f,
				DriverValue(externalData[f])); err != nil {
				return "", e.W(err, ECodeCF0308)
			}
		}
		if err := markRecordSynced(db, entityType, entityID); err != nil {
			return "", e.W(err, ECodeCF0308)
		}

	case rulesmodel.PreferredSourceLocal:
		resolutionType = model.ResolutionKeepLocal
		if _, err := enqueueEntry(db, entityType, entityID,
			queuemodel.DirectionToExternal, queuemodel.OperationUpdate,
			nil); err != nil {
			return "", e.W(err, ECodeCF0308)
		}
		if err := setRecordSyncStatus(db, entityType, entityID,
			recordmodel.SyncStatusSynced); err != nil {
			return "", e.W(err, ECodeCF0308)
		}

	default:
		return "", e.N(ECodeCF0308,
			fmt.Sprintf("invalid preferred source: %s", verdict.Source))
	}

	log.Info().Msgf("auto-resolved divergence on %s %d via rule %d (%s)",
		entityType, entityID, verdict.Rule.ID, resolutionType)

	return resolutionType, nil
}
