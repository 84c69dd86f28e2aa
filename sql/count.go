package sql

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/harborview/crmsync/e"
)

const (
	// FieldPlaceHolder place holder in select statements, replaced with the
	// real field list (or count) before execution
	FieldPlaceHolder = "<FIELD_PLACE_HOLDER>"
	// FieldCount replacement when counting
	FieldCount = "count(*) AS cnt"

	ECodeSQ0401 = e.CodeSQ04 + "01"
	ECodeSQ0402 = e.CodeSQ04 + "02"
)

// QueryCount gets the count from a select builder query. The builder must
// select the FieldPlaceHolder so the field list can be swapped for count(*)
func (c *Connection) QueryCount(sb sq.SelectBuilder) (count int, err error) {
	stmt, bindParams, err := sb.ToSql()
	if err != nil {
		return 0, e.W(err, ECodeSQ0401)
	}

	cntStmt := strings.Replace(stmt, FieldPlaceHolder, FieldCount, 1)
	row := c.QueryRow(cntStmt, bindParams...)
	if err := row.Scan(&count); err != nil {
		return 0, e.W(err, ECodeSQ0402,
			fmt.Sprintf("bindParams: %+v", bindParams))
	}

	return count, nil
}
