package sqlmodel

import (
	"github.com/harborview/crmsync/e"
	gosql "github.com/harborview/crmsync/sql"
)

const (
	ECodeCF0501 = e.CodeCF05 + "01"
)

var installStmts = []string{
	`CREATE TABLE IF NOT EXISTS sync_conflict (
		sync_conflict_id SERIAL PRIMARY KEY,
		sync_conflict_entity_type TEXT NOT NULL,
		sync_conflict_entity_id INT NOT NULL,
		sync_conflict_external_item_id TEXT NOT NULL DEFAULT '',
		sync_conflict_local_data JSONB NOT NULL,
		sync_conflict_external_data JSONB NOT NULL,
		sync_conflict_fields JSONB NOT NULL,
		detected_on TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_on TIMESTAMPTZ,
		sync_conflict_resolution_type TEXT,
		sync_conflict_resolved_by TEXT,
		created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_on TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// One unresolved conflict per entity at a time
	`CREATE UNIQUE INDEX IF NOT EXISTS sync_conflict_open_entity_idx
		ON sync_conflict (sync_conflict_entity_type, sync_conflict_entity_id)
		WHERE resolved_on IS NULL`,
	`CREATE INDEX IF NOT EXISTS sync_conflict_unresolved_idx
		ON sync_conflict (sync_conflict_entity_type)
		WHERE resolved_on IS NULL`,
}

// Install creates the sync_conflict table if it does not exist yet
func Install(db *gosql.Connection) (err error) {
	for _, stmt := range installStmts {
		if _, err := db.Exec(stmt); err != nil {
			return e.W(err, ECodeCF0501)
		}
	}

	return nil
}
