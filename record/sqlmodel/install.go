package sqlmodel

import (
	"github.com/harborview/crmsync/e"
	gosql "github.com/harborview/crmsync/sql"
)

const (
	ECodeRC0301 = e.CodeRC03 + "01"
)

var installStmts = []string{
	`CREATE TABLE IF NOT EXISTS contact (
		contact_id SERIAL PRIMARY KEY,
		contact_first_name TEXT,
		contact_last_name TEXT,
		contact_email TEXT,
		contact_phone TEXT,
		contact_title TEXT,
		contact_notes TEXT,
		contact_sync_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		contact_sync_status TEXT NOT NULL DEFAULT 'pending',
		contact_sync_direction TEXT NOT NULL DEFAULT 'bidirectional',
		contact_external_id TEXT,
		contact_last_synced TIMESTAMPTZ,
		created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_on TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS contact_external_id_idx
		ON contact (contact_external_id)`,
	`CREATE TABLE IF NOT EXISTS organization (
		organization_id SERIAL PRIMARY KEY,
		organization_name TEXT,
		organization_website TEXT,
		organization_phone TEXT,
		organization_industry TEXT,
		organization_address TEXT,
		organization_notes TEXT,
		organization_sync_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		organization_sync_status TEXT NOT NULL DEFAULT 'pending',
		organization_sync_direction TEXT NOT NULL DEFAULT 'bidirectional',
		organization_external_id TEXT,
		organization_last_synced TIMESTAMPTZ,
		created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_on TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS organization_external_id_idx
		ON organization (organization_external_id)`,
}

// Install creates the syncable entity tables if they do not exist yet
func Install(db *gosql.Connection) (err error) {
	for _, stmt := range installStmts {
		if _, err := db.Exec(stmt); err != nil {
			return e.W(err, ECodeRC0301)
		}
	}

	return nil
}
