// Package sync drains the sync queue: it claims due entries, pushes local
// changes to the external record service, pulls external changes into local
// records, and routes divergences through the rule engine into the conflict
// store.
package sync

import (
	"time"

	conflictmodel "github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/external"
	"github.com/harborview/crmsync/metrics"
	recordmodel "github.com/harborview/crmsync/record/model"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/syncqueue/model"
)

const (
	// MaxWorkersAllowed is the maximum allowed number of drain workers
	MaxWorkersAllowed = 100
	DefaultWorkers    = 8
	DefaultBatchSize  = 500
	DefaultStaleAfter = 10 * time.Minute

	ECodeSY0101 = e.CodeSY01 + "01"
)

// ExternalClient is the surface of the record service client the drain
// loop uses
type ExternalClient interface {
	FetchItem(entityType, externalID string) (item *external.Item, err error)
	CreateItem(entityType string, fields map[string]interface{}) (
		externalID string, err error)
	UpdateItem(entityType, externalID string,
		fields map[string]interface{}) (err error)
	DeleteItem(entityType, externalID string) (err error)
}

// EventPublisher receives sync lifecycle events. Publish failures must be
// handled by the implementation; the drain loop logs and moves on.
type EventPublisher interface {
	PublishOutcome(entityType recordmodel.EntityType, entityID int,
		operation, outcome, errMsg string) (err error)
	PublishConflict(c *conflictmodel.Conflict, event string) (err error)
}

// Indexer keeps the search index in step with synced records and open
// conflicts
type Indexer interface {
	IndexRecord(entityType recordmodel.EntityType, entityID int,
		data map[string]interface{}) (err error)
	IndexConflict(c *conflictmodel.Conflict) (err error)
	DeleteRecord(entityType recordmodel.EntityType, entityID int) (err error)
}

// ServiceConfig configuration options for NewService. Publisher, Indexer
// and Metrics are optional; a nil value disables that side effect.
type ServiceConfig struct {
	Client     ExternalClient
	Publisher  EventPublisher
	Indexer    Indexer
	Metrics    *metrics.Metrics
	Workers    int
	BatchSize  uint64
	StaleAfter time.Duration
}

// Service coordinates drain runs
type Service struct {
	client     ExternalClient
	publisher  EventPublisher
	indexer    Indexer
	metrics    *metrics.Metrics
	workers    int
	batchSize  uint64
	staleAfter time.Duration

	// process defaults to processEntry; tests install a stub
	process func(db *gosql.Connection, entry *model.Entry) (
		outcome string, err error)
}

// NewService returns a drain service for the passed dependencies
func NewService(cfg ServiceConfig) (s *Service, err error) {
	if cfg.Client == nil {
		return nil, e.N(ECodeSY0101, "external client is required")
	}
	if cfg.Workers > MaxWorkersAllowed {
		return nil, e.N(ECodeSY0101, "worker count exceeds maximum")
	}

	s = &Service{
		client:     cfg.Client,
		publisher:  cfg.Publisher,
		indexer:    cfg.Indexer,
		metrics:    cfg.Metrics,
		workers:    cfg.Workers,
		batchSize:  cfg.BatchSize,
		staleAfter: cfg.StaleAfter,
	}

	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.batchSize == 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.staleAfter <= 0 {
		s.staleAfter = DefaultStaleAfter
	}
	s.process = s.processEntry

	return s, nil
}
