package sync

import (
	"fmt"

	"github.com/harborview/crmsync/conflict"
	conflictmodel "github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/external"
	"github.com/harborview/crmsync/kafka"
	"github.com/harborview/crmsync/metrics"
	"github.com/harborview/crmsync/record"
	recordmodel "github.com/harborview/crmsync/record/model"
	recordsql "github.com/harborview/crmsync/record/sqlmodel"
	"github.com/harborview/crmsync/rules"
	rulessql "github.com/harborview/crmsync/rules/sqlmodel"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue/model"
	"github.com/rs/zerolog/log"
)

const (
	ECodeSY0301 = e.CodeSY03 + "01"
	ECodeSY0302 = e.CodeSY03 + "02"
	ECodeSY0303 = e.CodeSY03 + "03"
	ECodeSY0304 = e.CodeSY03 + "04"
	ECodeSY0305 = e.CodeSY03 + "05"
	ECodeSY0306 = e.CodeSY03 + "06"
	ECodeSY0307 = e.CodeSY03 + "07"
	ECodeSY0308 = e.CodeSY03 + "08"
)

// Record and conflict store indirections, swapped for in-memory fakes in
// tests
var (
	syncStateGet   = recordsql.SyncStateGet
	recordDataGet  = recordsql.DataGet
	applyField     = recordsql.ApplyField
	markSynced     = recordsql.MarkSynced
	setExternalID  = recordsql.SetExternalID
	rulesForEntity = rulessql.RulesGetForEntity
	autoResolve    = conflict.AutoResolve
	recordConflict = conflict.RecordConflict
)

// processEntry routes a claimed entry to the push or pull path. The error,
// if any, is classified by the caller into requeue versus permanent failure.
func (s *Service) processEntry(db *gosql.Connection,
	entry *model.Entry) (outcome string, err error) {

	switch entry.Direction {
	case model.DirectionToExternal:
		return s.push(db, entry)
	case model.DirectionToLocal:
		return s.pull(db, entry)
	}

	return "", e.N(ECodeSY0301,
		fmt.Sprintf("invalid direction: %s", entry.Direction))
}

// push propagates a local change out to the record service
func (s *Service) push(db *gosql.Connection,
	entry *model.Entry) (outcome string, err error) {

	if entry.Operation == model.OperationDelete {
		return s.pushDelete(db, entry)
	}

	ss, err := syncStateGet(db, entry.EntityType, entry.EntityID)
	if err != nil {
		return "", e.W(err, ECodeSY0302)
	}
	if !ss.SyncEnabled || !ss.SyncDirection.AllowsPush() {
		log.Info().Msgf("entry %d suppressed, %s %d does not accept pushes",
			entry.ID, entry.EntityType, entry.EntityID)
		return metrics.OutcomeSkipped, nil
	}

	data, err := recordDataGet(db, entry.EntityType, entry.EntityID)
	if err != nil {
		return "", e.W(err, ECodeSY0302)
	}
	payload, err := external.PushPayload(entry.EntityType, data)
	if err != nil {
		return "", e.W(err, ECodeSY0302)
	}

	// An update against a record the service has never seen becomes a
	// create, and a create for a record that already has an external id
	// becomes an update. Both happen when entries are drained out of the
	// order they were enqueued in.
	op := entry.Operation
	if op == model.OperationCreate && ss.ExternalID != nil && *ss.ExternalID != "" {
		op = model.OperationUpdate
	} else if op == model.OperationUpdate && (ss.ExternalID == nil || *ss.ExternalID == "") {
		op = model.OperationCreate
	}

	switch op {
	case model.OperationCreate:
		externalID, err := s.client.CreateItem(string(entry.EntityType), payload)
		if err != nil {
			return "", e.W(err, ECodeSY0303)
		}
		if err := setExternalID(db, entry.EntityType, entry.EntityID,
			externalID); err != nil {
			return "", e.W(err, ECodeSY0303)
		}

	case model.OperationUpdate:
		if err := s.client.UpdateItem(string(entry.EntityType), *ss.ExternalID,
			payload); err != nil {
			return "", e.W(err, ECodeSY0304)
		}
	}

	if err := markSynced(db, entry.EntityType, entry.EntityID); err != nil {
		return "", e.W(err, ECodeSY0304)
	}

	s.indexRecord(entry.EntityType, entry.EntityID, data)

	return metrics.OutcomeSucceeded, nil
}

// pushDelete removes the external item for a deleted local record. The
// local row is usually gone by the time the entry drains, so the external
// id is taken from the entry payload when the sync state no longer exists.
func (s *Service) pushDelete(db *gosql.Connection,
	entry *model.Entry) (outcome string, err error) {

	externalID := ""
	if ss, ssErr := syncStateGet(db, entry.EntityType,
		entry.EntityID); ssErr == nil && ss.ExternalID != nil {
		externalID = *ss.ExternalID
	} else if v, ok := entry.Payload["external_id"].(string); ok {
		externalID = v
	}

	if externalID == "" {
		// Never pushed, nothing to delete remotely
		return metrics.OutcomeSucceeded, nil
	}

	if err := s.client.DeleteItem(string(entry.EntityType),
		externalID); err != nil && !external.IsNotFound(err) {
		return "", e.W(err, ECodeSY0305)
	}

	if s.indexer != nil {
		if err := s.indexer.DeleteRecord(entry.EntityType, entry.EntityID); err != nil {
			log.Error().Err(err).Msgf("deindex %s %d",
				entry.EntityType, entry.EntityID)
		}
	}

	return metrics.OutcomeSucceeded, nil
}

// pull fetches the external item, compares it field by field against the
// local record and either converges, auto resolves via the rule engine, or
// records a conflict.
func (s *Service) pull(db *gosql.Connection,
	entry *model.Entry) (outcome string, err error) {

	ss, err := syncStateGet(db, entry.EntityType, entry.EntityID)
	if err != nil {
		return "", e.W(err, ECodeSY0306)
	}
	if !ss.SyncEnabled || !ss.SyncDirection.AllowsPull() {
		log.Info().Msgf("entry %d suppressed, %s %d does not accept pulls",
			entry.ID, entry.EntityType, entry.EntityID)
		return metrics.OutcomeSkipped, nil
	}
	if ss.ExternalID == nil || *ss.ExternalID == "" {
		return "", e.N(ECodeSY0306, fmt.Sprintf(
			"%s %d has no external id to pull from",
			entry.EntityType, entry.EntityID))
	}

	item, err := s.client.FetchItem(string(entry.EntityType), *ss.ExternalID)
	if err != nil {
		return "", e.W(err, ECodeSY0307)
	}

	localData, err := recordDataGet(db, entry.EntityType, entry.EntityID)
	if err != nil {
		return "", e.W(err, ECodeSY0307)
	}
	fieldNames, err := record.SyncableFieldNames(entry.EntityType)
	if err != nil {
		return "", e.W(err, ECodeSY0307)
	}

	conflictFields := conflict.Detect(localData, item.Fields, fieldNames)
	if len(conflictFields) == 0 {
		if err := markSynced(db, entry.EntityType, entry.EntityID); err != nil {
			return "", e.W(err, ECodeSY0307)
		}
		s.indexRecord(entry.EntityType, entry.EntityID, localData)
		return metrics.OutcomeSucceeded, nil
	}

	// Rules always get first say on a divergence, even on a record with no
	// local edits: a keep_local rule pins the field regardless of sync status
	ruleList, err := rulesForEntity(db, entry.EntityType)
	if err != nil {
		return "", e.W(err, ECodeSY0308)
	}
	if verdict := rules.TryAutoResolve(ruleList, entry.EntityType,
		conflictFields); verdict != nil {
		if _, err := autoResolve(db, entry.EntityType, entry.EntityID,
			conflictFields, item.Fields, verdict); err != nil {
			return "", e.W(err, ECodeSY0308)
		}
		return metrics.OutcomeSucceeded, nil
	}

	// No rule matched. A record with no local edits follows the external
	// side outright; divergence only becomes a conflict when both sides
	// changed.
	if ss.SyncStatus == recordmodel.SyncStatusSynced {
		for _, f := range conflictFields {
			if err := applyField(db, entry.EntityType, entry.EntityID,
				f, conflict.DriverValue(item.Fields[f])); err != nil {
				return "", e.W(err, ECodeSY0308)
			}
			localData[f] = conflict.NormalizeValue(item.Fields[f])
		}
		if err := markSynced(db, entry.EntityType, entry.EntityID); err != nil {
			return "", e.W(err, ECodeSY0308)
		}
		s.indexRecord(entry.EntityType, entry.EntityID, localData)
		return metrics.OutcomeSucceeded, nil
	}

	c, err := recordConflict(db, entry.EntityType, entry.EntityID,
		*ss.ExternalID, localData, item.Fields, conflictFields)
	if err != nil {
		return "", e.W(err, ECodeSY0308)
	}
	s.notifyConflict(c)

	return metrics.OutcomeConflict, nil
}

// indexRecord pushes the latest record data to the search index, fire and
// forget
func (s *Service) indexRecord(et recordmodel.EntityType, id int,
	data map[string]interface{}) {
	if s.indexer == nil {
		return
	}

	if err := s.indexer.IndexRecord(et, id, data); err != nil {
		log.Error().Err(err).Msgf("index %s %d", et, id)
	}
}

// notifyConflict publishes and indexes a newly recorded conflict
func (s *Service) notifyConflict(c *conflictmodel.Conflict) {
	if s.publisher != nil {
		if err := s.publisher.PublishConflict(c, kafka.EventConflictDetected); err != nil {
			log.Error().Err(err).Msgf("publish conflict %d", c.ID)
		}
	}
	if s.indexer != nil {
		if err := s.indexer.IndexConflict(c); err != nil {
			log.Error().Err(err).Msgf("index conflict %d", c.ID)
		}
	}
}
