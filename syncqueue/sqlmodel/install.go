package sqlmodel

import (
	"github.com/harborview/crmsync/e"
	gosql "github.com/harborview/crmsync/sql"
)

const (
	ECodeQU0401 = e.CodeQU04 + "01"
)

var installStmts = []string{
	`CREATE TABLE IF NOT EXISTS sync_queue (
		sync_queue_id SERIAL PRIMARY KEY,
		sync_queue_entity_type TEXT NOT NULL,
		sync_queue_entity_id INT NOT NULL,
		sync_queue_direction TEXT NOT NULL,
		sync_queue_operation TEXT NOT NULL,
		sync_queue_payload JSONB,
		sync_queue_status TEXT NOT NULL DEFAULT 'pending',
		sync_queue_attempts INT NOT NULL DEFAULT 0,
		sync_queue_max_attempts INT NOT NULL DEFAULT 5,
		sync_queue_last_attempt TIMESTAMPTZ,
		sync_queue_next_retry TIMESTAMPTZ,
		sync_queue_error TEXT,
		created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_on TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS sync_queue_due_idx
		ON sync_queue (sync_queue_status, sync_queue_next_retry)`,
	`CREATE INDEX IF NOT EXISTS sync_queue_entity_idx
		ON sync_queue (sync_queue_entity_type, sync_queue_entity_id)`,
}

// Install creates the sync_queue table if it does not exist yet
func Install(db *gosql.Connection) (err error) {
	for _, stmt := range installStmts {
		if _, err := db.Exec(stmt); err != nil {
			return e.W(err, ECodeQU0401)
		}
	}

	return nil
}
