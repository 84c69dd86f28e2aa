package sqlmodel

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/record"
	"github.com/harborview/crmsync/record/model"
	gosql "github.com/harborview/crmsync/sql"
)

const (
	ECodeRC0201 = e.CodeRC02 + "01"
	ECodeRC0202 = e.CodeRC02 + "02"
	ECodeRC0203 = e.CodeRC02 + "03"
	ECodeRC0204 = e.CodeRC02 + "04"
	ECodeRC0205 = e.CodeRC02 + "05"
	ECodeRC0206 = e.CodeRC02 + "06"
	ECodeRC0207 = e.CodeRC02 + "07"
	ECodeRC0208 = e.CodeRC02 + "08"
	ECodeRC0209 = e.CodeRC02 + "09"
	ECodeRC020A = e.CodeRC02 + "0A"
)

// tableMeta resolves the table, id column and sync column prefix for the
// entity type
func tableMeta(et model.EntityType) (table, idCol, prefix string, err error) {
	switch et {
	case model.EntityTypeContact:
		return "contact", "contact_id", "contact_", nil
	case model.EntityTypeOrganization:
		return "organization", "organization_id", "organization_", nil
	}

	return "", "", "", e.N(ECodeRC0201,
		fmt.Sprintf("invalid entity type: %s", et))
}

// SyncStateGet fetches the sync state columns for a record
func SyncStateGet(db *gosql.Connection, et model.EntityType, id int) (
	ss *model.SyncState, err error) {
	table, idCol, prefix, err := tableMeta(et)
	if err != nil {
		return nil, e.W(err, ECodeRC0202)
	}

	sb := db.Select(
		prefix+"sync_enabled",
		prefix+"sync_status",
		prefix+"sync_direction",
		prefix+"external_id",
		prefix+"last_synced").
		From(table).
		Where(idCol+"=?", id)

	stmt, bindList, err := sb.ToSql()
	if err != nil {
		return nil, e.W(err, ECodeRC0203)
	}

	ss = &model.SyncState{EntityType: et, EntityID: id}
	var externalID sql.NullString
	var lastSynced sql.NullTime
	row := db.QueryRow(stmt, bindList...)
	if err := row.Scan(&ss.SyncEnabled, &ss.SyncStatus, &ss.SyncDirection,
		&externalID, &lastSynced); err != nil {
		if e.IsNoRowsError(err) {
			return nil, e.N(ECodeRC0204, e.MsgRecordDoesNotExist)
		}
		return nil, e.W(err, ECodeRC0204)
	}

	if externalID.Valid {
		ss.ExternalID = &externalID.String
	}
	if lastSynced.Valid {
		ss.LastSynced = &lastSynced.Time
	}

	return ss, nil
}

// DataGet fetches the current values of all syncable fields for a record,
// keyed by field name
func DataGet(db *gosql.Connection, et model.EntityType, id int) (
	data map[string]interface{}, err error) {
	table, idCol, _, err := tableMeta(et)
	if err != nil {
		return nil, e.W(err, ECodeRC0205)
	}

	fields, err := record.SyncableFields(et)
	if err != nil {
		return nil, e.W(err, ECodeRC0205)
	}

	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		columns = append(columns, f.Column)
	}

	sb := db.Select(columns...).
		From(table).
		Where(idCol+"=?", id)

	stmt, bindList, err := sb.ToSql()
	if err != nil {
		return nil, e.W(err, ECodeRC0206)
	}

	values := make([]sql.NullString, len(fields))
	dest := make([]interface{}, len(fields))
	for i := range values {
		dest[i] = &values[i]
	}

	row := db.QueryRow(stmt, bindList...)
	if err := row.Scan(dest...); err != nil {
		if e.IsNoRowsError(err) {
			return nil, e.N(ECodeRC0207, e.MsgRecordDoesNotExist)
		}
		return nil, e.W(err, ECodeRC0207)
	}

	data = make(map[string]interface{}, len(fields))
	for i, f := range fields {
		if values[i].Valid {
			data[f.Name] = values[i].String
		} else {
			data[f.Name] = nil
		}
	}

	return data, nil
}

// ApplyField writes a single syncable field onto a record. The field name is
// resolved through the allow list, so unknown names are rejected rather than
// interpolated into the statement.
func ApplyField(db *gosql.Connection, et model.EntityType, id int,
	field string, value interface{}) (err error) {
	table, idCol, _, err := tableMeta(et)
	if err != nil {
		return e.W(err, ECodeRC0208)
	}

	column, ok := record.FieldColumn(et, field)
	if !ok {
		return e.N(ECodeRC0208,
			fmt.Sprintf("%s: %s.%s", e.MsgUnknownField, et, field))
	}

	ub := db.Update(table).
		Where(idCol+"=?", id).
		Set(column, value).
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeRC0208)
	}

	return nil
}

// SetSyncStatus updates the record's sync status
func SetSyncStatus(db *gosql.Connection, et model.EntityType, id int,
	status model.SyncStatus) (err error) {
	table, idCol, prefix, err := tableMeta(et)
	if err != nil {
		return e.W(err, ECodeRC0209)
	}

	ub := db.Update(table).
		Where(idCol+"=?", id).
		Set(prefix+"sync_status", string(status)).
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeRC0209)
	}

	return nil
}

// MarkSynced sets the record's sync status to synced and stamps last_synced
func MarkSynced(db *gosql.Connection, et model.EntityType, id int) (err error) {
	table, idCol, prefix, err := tableMeta(et)
	if err != nil {
		return e.W(err, ECodeRC020A)
	}

	ub := db.Update(table).
		Where(idCol+"=?", id).
		Set(prefix+"sync_status", string(model.SyncStatusSynced)).
		Set(prefix+"last_synced", time.Now()).
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeRC020A)
	}

	return nil
}

// SetExternalID stores the external item id assigned to a record
func SetExternalID(db *gosql.Connection, et model.EntityType, id int,
	externalID string) (err error) {
	table, idCol, prefix, err := tableMeta(et)
	if err != nil {
		return e.W(err, ECodeRC020A)
	}

	ub := db.Update(table).
		Where(idCol+"=?", id).
		Set(prefix+"external_id", externalID).
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeRC020A)
	}

	return nil
}
