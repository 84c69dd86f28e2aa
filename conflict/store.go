package conflict

import (
	"github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/rs/zerolog/log"
)

const (
	ECodeCF0201 = e.CodeCF02 + "01"
	ECodeCF0202 = e.CodeCF02 + "02"
	ECodeCF0203 = e.CodeCF02 + "03"
	ECodeCF0204 = e.CodeCF02 + "04"
	ECodeCF0205 = e.CodeCF02 + "05"
)

// RecordConflict persists a detected divergence and flips the entity's sync
// status to conflict, halting sync for that record until resolution. Only
// one unresolved conflict may exist per entity: if one is already open its
// snapshots are refreshed with the latest detection instead of creating a
// second row.
func RecordConflict(db *gosql.Connection, entityType recordmodel.EntityType,
	entityID int, externalItemID string,
	localData, externalData map[string]interface{},
	conflictFields []string) (c *model.Conflict, err error) {

	existing, err := conflictGetOpenByEntity(db, entityType, entityID)
	if err != nil {
		return nil, e.W(err, ECodeCF0201)
	}

	if existing != nil {
		if err := conflictUpdateSnapshots(db, existing.ID,
			localData, externalData, conflictFields); err != nil {
			return nil, e.W(err, ECodeCF0202)
		}
		existing.LocalData = localData
		existing.ExternalData = externalData
		existing.ConflictFields = conflictFields
		return existing, nil
	}

	c = &model.Conflict{
		EntityType:     entityType,
		EntityID:       entityID,
		ExternalItemID: externalItemID,
		LocalData:      localData,
		ExternalData:   externalData,
		ConflictFields: conflictFields,
	}

	c.ID, err = conflictInsert(db, c)
	if err != nil {
		// Lost the race against a concurrent detection: the partial unique
		// index rejected the second open conflict, return the winner's row
		if e.IsUniqueViolation(err) {
			existing, err2 := conflictGetOpenByEntity(db, entityType, entityID)
			if err2 != nil {
				return nil, e.W(err2, ECodeCF0203)
			}
			if existing != nil {
				return existing, nil
			}
		}
		return nil, e.W(err, ECodeCF0204)
	}

	if err := setRecordSyncStatus(db, entityType, entityID,
		recordmodel.SyncStatusConflict); err != nil {
		return nil, e.W(err, ECodeCF0205)
	}

	log.Info().Msgf("conflict recorded for %s %d, fields: %v",
		entityType, entityID, conflictFields)

	return c, nil
}
