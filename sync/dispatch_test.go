package sync

import (
	"testing"

	"github.com/harborview/crmsync/conflict"
	conflictmodel "github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/external"
	"github.com/harborview/crmsync/metrics"
	recordmodel "github.com/harborview/crmsync/record/model"
	recordsql "github.com/harborview/crmsync/record/sqlmodel"
	"github.com/harborview/crmsync/rules"
	rulesmodel "github.com/harborview/crmsync/rules/model"
	rulessql "github.com/harborview/crmsync/rules/sqlmodel"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue/model"
)

// resetDispatchSeams restores the record and conflict store indirections
// after a test stubs them
func resetDispatchSeams(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		syncStateGet = recordsql.SyncStateGet
		recordDataGet = recordsql.DataGet
		applyField = recordsql.ApplyField
		markSynced = recordsql.MarkSynced
		setExternalID = recordsql.SetExternalID
		rulesForEntity = rulessql.RulesGetForEntity
		autoResolve = conflict.AutoResolve
		recordConflict = conflict.RecordConflict
	})
}

// pullClient serves a fixed external field map
type pullClient struct {
	stubClient
	fields map[string]interface{}
}

func (c pullClient) FetchItem(entityType, externalID string) (*external.Item, error) {
	return &external.Item{ID: externalID, Fields: c.fields}, nil
}

func pullEntry() *model.Entry {
	return &model.Entry{
		ID:          1,
		EntityType:  recordmodel.EntityTypeContact,
		EntityID:    7,
		Direction:   model.DirectionToLocal,
		Operation:   model.OperationUpdate,
		MaxAttempts: 5,
	}
}

func stubSyncState(status recordmodel.SyncStatus) {
	syncStateGet = func(db *gosql.Connection, et recordmodel.EntityType,
		id int) (*recordmodel.SyncState, error) {
		externalID := "ext-7"
		return &recordmodel.SyncState{
			EntityType:    et,
			EntityID:      id,
			SyncEnabled:   true,
			SyncStatus:    status,
			SyncDirection: recordmodel.SyncDirectionBidirectional,
			ExternalID:    &externalID,
		}, nil
	}
}

func TestPullRuleWinsOverExternalFollow(t *testing.T) {
	resetDispatchSeams(t)

	stubSyncState(recordmodel.SyncStatusSynced)
	recordDataGet = func(db *gosql.Connection, et recordmodel.EntityType,
		id int) (map[string]interface{}, error) {
		return map[string]interface{}{"email": "local@example.com"}, nil
	}
	applyField = func(db *gosql.Connection, et recordmodel.EntityType,
		id int, field string, value interface{}) error {
		t.Errorf("external value overwrote rule pinned field %s", field)
		return nil
	}

	field := "email"
	rulesForEntity = func(db *gosql.Connection,
		et recordmodel.EntityType) ([]*rulesmodel.Rule, error) {
		return []*rulesmodel.Rule{{
			ID:              1,
			Name:            "pin contact email",
			EntityType:      string(et),
			FieldName:       &field,
			PreferredSource: rulesmodel.PreferredSourceLocal,
			IsEnabled:       true,
		}}, nil
	}

	var gotVerdict *rules.Verdict
	autoResolve = func(db *gosql.Connection, entityType recordmodel.EntityType,
		entityID int, conflictFields []string,
		externalData map[string]interface{},
		verdict *rules.Verdict) (conflictmodel.ResolutionType, error) {
		gotVerdict = verdict
		return conflictmodel.ResolutionKeepLocal, nil
	}
	recordConflict = func(db *gosql.Connection,
		entityType recordmodel.EntityType, entityID int, externalItemID string,
		localData, externalData map[string]interface{},
		conflictFields []string) (*conflictmodel.Conflict, error) {
		t.Error("conflict recorded despite a matching rule")
		return &conflictmodel.Conflict{}, nil
	}

	s, err := NewService(ServiceConfig{Client: pullClient{
		fields: map[string]interface{}{"email": "remote@example.com"},
	}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	outcome, err := s.pull(nil, pullEntry())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if outcome != metrics.OutcomeSucceeded {
		t.Errorf("outcome = %q, want %q", outcome, metrics.OutcomeSucceeded)
	}
	if gotVerdict == nil {
		t.Fatal("rule engine verdict was not applied")
	}
	if gotVerdict.Source != rulesmodel.PreferredSourceLocal {
		t.Errorf("verdict source = %s, want local", gotVerdict.Source)
	}
}

func TestPullFollowsExternalWithoutLocalEdits(t *testing.T) {
	resetDispatchSeams(t)

	stubSyncState(recordmodel.SyncStatusSynced)
	recordDataGet = func(db *gosql.Connection, et recordmodel.EntityType,
		id int) (map[string]interface{}, error) {
		return map[string]interface{}{"email": "local@example.com"}, nil
	}
	rulesForEntity = func(db *gosql.Connection,
		et recordmodel.EntityType) ([]*rulesmodel.Rule, error) {
		return nil, nil
	}

	applied := map[string]interface{}{}
	applyField = func(db *gosql.Connection, et recordmodel.EntityType,
		id int, field string, value interface{}) error {
		applied[field] = value
		return nil
	}
	synced := false
	markSynced = func(db *gosql.Connection, et recordmodel.EntityType,
		id int) error {
		synced = true
		return nil
	}
	recordConflict = func(db *gosql.Connection,
		entityType recordmodel.EntityType, entityID int, externalItemID string,
		localData, externalData map[string]interface{},
		conflictFields []string) (*conflictmodel.Conflict, error) {
		t.Error("conflict recorded for a record with no local edits")
		return &conflictmodel.Conflict{}, nil
	}

	s, err := NewService(ServiceConfig{Client: pullClient{
		fields: map[string]interface{}{"email": "remote@example.com"},
	}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	outcome, err := s.pull(nil, pullEntry())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if outcome != metrics.OutcomeSucceeded {
		t.Errorf("outcome = %q, want %q", outcome, metrics.OutcomeSucceeded)
	}
	if applied["email"] != "remote@example.com" {
		t.Errorf("applied = %v, want the external email", applied)
	}
	if !synced {
		t.Error("record was not marked synced after converging")
	}
}

func TestPullRecordsConflictOnDualEdit(t *testing.T) {
	resetDispatchSeams(t)

	stubSyncState(recordmodel.SyncStatusPending)
	recordDataGet = func(db *gosql.Connection, et recordmodel.EntityType,
		id int) (map[string]interface{}, error) {
		return map[string]interface{}{"email": "local@example.com"}, nil
	}
	rulesForEntity = func(db *gosql.Connection,
		et recordmodel.EntityType) ([]*rulesmodel.Rule, error) {
		return nil, nil
	}
	applyField = func(db *gosql.Connection, et recordmodel.EntityType,
		id int, field string, value interface{}) error {
		t.Errorf("field %s applied despite local edits", field)
		return nil
	}

	recorded := false
	recordConflict = func(db *gosql.Connection,
		entityType recordmodel.EntityType, entityID int, externalItemID string,
		localData, externalData map[string]interface{},
		conflictFields []string) (*conflictmodel.Conflict, error) {
		recorded = true
		return &conflictmodel.Conflict{
			ID:             9,
			EntityType:     entityType,
			EntityID:       entityID,
			ConflictFields: conflictFields,
		}, nil
	}

	s, err := NewService(ServiceConfig{Client: pullClient{
		fields: map[string]interface{}{"email": "remote@example.com"},
	}})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	outcome, err := s.pull(nil, pullEntry())
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if outcome != metrics.OutcomeConflict {
		t.Errorf("outcome = %q, want %q", outcome, metrics.OutcomeConflict)
	}
	if !recorded {
		t.Error("divergence with local edits did not record a conflict")
	}
}
