package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harborview/crmsync/conflict"
	conflictmodel "github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/kafka"
	recordmodel "github.com/harborview/crmsync/record/model"
	gosql "github.com/harborview/crmsync/sql"
)

type stubPublisher struct {
	events []string
	ids    []int
}

func (p *stubPublisher) PublishOutcome(entityType recordmodel.EntityType,
	entityID int, operation, outcome, errMsg string) error {
	return nil
}

func (p *stubPublisher) PublishConflict(c *conflictmodel.Conflict,
	event string) error {
	p.events = append(p.events, event)
	p.ids = append(p.ids, c.ID)
	return nil
}

type stubIndexer struct {
	conflicts []int
}

func (i *stubIndexer) IndexRecord(entityType recordmodel.EntityType,
	entityID int, data map[string]interface{}) error {
	return nil
}

func (i *stubIndexer) IndexConflict(c *conflictmodel.Conflict) error {
	i.conflicts = append(i.conflicts, c.ID)
	return nil
}

func (i *stubIndexer) DeleteRecord(entityType recordmodel.EntityType,
	entityID int) error {
	return nil
}

func TestResolveEndpointPublishesAndReindexes(t *testing.T) {
	t.Cleanup(func() { resolveConflict = conflict.Resolve })

	now := time.Now()
	rt := conflictmodel.ResolutionKeepExternal
	resolved := &conflictmodel.Conflict{
		ID:             42,
		EntityType:     recordmodel.EntityTypeContact,
		EntityID:       7,
		ConflictFields: []string{"email"},
		ResolvedAt:     &now,
		ResolutionType: &rt,
	}

	resolveConflict = func(db *gosql.Connection, conflictID int,
		resolutionType conflictmodel.ResolutionType, resolvedBy *string,
		mergeSelections map[string]string) (*conflictmodel.Conflict, error) {
		if conflictID != 42 {
			t.Errorf("resolved conflict %d, want 42", conflictID)
		}
		return resolved, nil
	}

	pub := &stubPublisher{}
	idx := &stubIndexer{}
	s, err := NewServer(ServerConfig{
		DB:           &gosql.Connection{},
		Drainer:      &stubDrainer{},
		Publisher:    pub,
		Indexer:      idx,
		TriggerToken: "sekrit",
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	body := strings.NewReader(
		`{"resolution_type":"keep_external","resolved_by":"ops"}`)
	r := httptest.NewRequest(http.MethodPost, "/sync/conflicts/42/resolve", body)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body)
	}
	if len(pub.events) != 1 || pub.events[0] != kafka.EventConflictResolved {
		t.Errorf("published events = %v, want [%s]",
			pub.events, kafka.EventConflictResolved)
	}
	if len(pub.ids) != 1 || pub.ids[0] != 42 {
		t.Errorf("published conflict ids = %v, want [42]", pub.ids)
	}
	if len(idx.conflicts) != 1 || idx.conflicts[0] != 42 {
		t.Errorf("reindexed conflicts = %v, want [42]", idx.conflicts)
	}
}

func TestResolveEndpointSkipsNotifyOnFailure(t *testing.T) {
	t.Cleanup(func() { resolveConflict = conflict.Resolve })

	resolveConflict = func(db *gosql.Connection, conflictID int,
		resolutionType conflictmodel.ResolutionType, resolvedBy *string,
		mergeSelections map[string]string) (*conflictmodel.Conflict, error) {
		return nil, e.N(conflict.ECodeCF0303, e.MsgConflictDoesNotExist)
	}

	pub := &stubPublisher{}
	idx := &stubIndexer{}
	s, err := NewServer(ServerConfig{
		DB:           &gosql.Connection{},
		Drainer:      &stubDrainer{},
		Publisher:    pub,
		Indexer:      idx,
		TriggerToken: "sekrit",
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	body := strings.NewReader(`{"resolution_type":"keep_local"}`)
	r := httptest.NewRequest(http.MethodPost, "/sync/conflicts/99/resolve", body)
	w := httptest.NewRecorder()

	s.Handler().ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if len(pub.events) != 0 || len(idx.conflicts) != 0 {
		t.Errorf("events = %v indexed = %v, want no notifications",
			pub.events, idx.conflicts)
	}
}
