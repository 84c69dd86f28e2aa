package sqlmodel

import (
	"github.com/harborview/crmsync/e"
	gosql "github.com/harborview/crmsync/sql"
)

const (
	ECodeRL0301 = e.CodeRL03 + "01"
)

var installStmts = []string{
	`CREATE TABLE IF NOT EXISTS auto_resolution_rule (
		rule_id SERIAL PRIMARY KEY,
		rule_name TEXT NOT NULL,
		rule_entity_type TEXT NOT NULL,
		rule_field_name TEXT,
		rule_preferred_source TEXT NOT NULL,
		rule_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		rule_priority INT NOT NULL DEFAULT 0,
		rule_created_by TEXT NOT NULL DEFAULT '',
		created_on TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_on TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS auto_resolution_rule_lookup_idx
		ON auto_resolution_rule (rule_entity_type, rule_enabled)`,
}

// Install creates the auto_resolution_rule table if it does not exist yet
func Install(db *gosql.Connection) (err error) {
	for _, stmt := range installStmts {
		if _, err := db.Exec(stmt); err != nil {
			return e.W(err, ECodeRL0301)
		}
	}

	return nil
}
