package sql

import (
	"database/sql"
	"fmt"

	"github.com/harborview/crmsync/e"
)

const (
	ECodeSQ0201 = e.CodeSQ02 + "01"
	ECodeSQ0202 = e.CodeSQ02 + "02"
)

// Row a wrapper struct for sql.Row, so error handling can happen
type Row struct {
	row   *sql.Row
	query string
}

// Scan wrapper for row's Scan, which returns an extended error instead
func (r *Row) Scan(dest ...interface{}) error {
	if err := r.row.Scan(dest...); err != nil {
		return e.W(err, ECodeSQ0201, fmt.Sprintf("query: %s", r.query))
	}

	return nil
}

// Err wrapper for row's Err func
func (r *Row) Err() error {
	err := r.row.Err()
	if err == nil {
		return nil
	}

	return e.W(err, ECodeSQ0202, fmt.Sprintf("query: %s", r.query))
}
