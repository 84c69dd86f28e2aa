package sqlmodel

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	gosql "github.com/harborview/crmsync/sql"
)

const (
	ConflictTableName = "sync_conflict"

	ECodeCF0401 = e.CodeCF04 + "01"
	ECodeCF0402 = e.CodeCF04 + "02"
	ECodeCF0403 = e.CodeCF04 + "03"
	ECodeCF0404 = e.CodeCF04 + "04"
	ECodeCF0405 = e.CodeCF04 + "05"
	ECodeCF0406 = e.CodeCF04 + "06"
	ECodeCF0407 = e.CodeCF04 + "07"
	ECodeCF0408 = e.CodeCF04 + "08"
	ECodeCF0409 = e.CodeCF04 + "09"
	ECodeCF040A = e.CodeCF04 + "0A"
)

// ConflictGetParam model
type ConflictGetParam struct {
	Limit       *uint64
	Offset      *uint64
	ID          *int
	EntityType  *string
	EntityID    *int
	Unresolved  bool
	FlagCount   bool
	DataHandler func(*model.Conflict) error
}

// ConflictInsert performs the DB operation to insert a new conflict. The
// partial unique index on (entity_type, entity_id) where unresolved makes a
// second open conflict per entity a unique violation, which the store layer
// translates into returning the existing one.
func ConflictInsert(db *gosql.Connection, input *model.Conflict) (id int, err error) {
	localData, err := json.Marshal(input.LocalData)
	if err != nil {
		return 0, e.W(err, ECodeCF0401)
	}
	externalData, err := json.Marshal(input.ExternalData)
	if err != nil {
		return 0, e.W(err, ECodeCF0401)
	}
	fields, err := json.Marshal(input.ConflictFields)
	if err != nil {
		return 0, e.W(err, ECodeCF0401)
	}

	ib := db.Insert(ConflictTableName).
		Columns(`sync_conflict_entity_type, sync_conflict_entity_id,
			sync_conflict_external_item_id, sync_conflict_local_data,
			sync_conflict_external_data, sync_conflict_fields,
			detected_on, created_on, updated_on`).
		Values(string(input.EntityType), input.EntityID,
			input.ExternalItemID, localData,
			externalData, fields,
			time.Now(), time.Now(), time.Now()).
		Suffix(`RETURNING sync_conflict_id`)

	id, err = db.ExecInsertReturningID(ib)
	if err != nil {
		return 0, e.W(err, ECodeCF0402)
	}

	return id, nil
}

// ConflictUpdateSnapshots refreshes the data snapshots and conflicting
// fields of an open conflict after re-detection
func ConflictUpdateSnapshots(db *gosql.Connection, id int,
	localData, externalData map[string]interface{},
	conflictFields []string) (err error) {
	ld, err := json.Marshal(localData)
	if err != nil {
		return e.W(err, ECodeCF0403)
	}
	ed, err := json.Marshal(externalData)
	if err != nil {
		return e.W(err, ECodeCF0403)
	}
	cf, err := json.Marshal(conflictFields)
	if err != nil {
		return e.W(err, ECodeCF0403)
	}

	ub := db.Update(ConflictTableName).
		Where("sync_conflict_id=?", id).
		Where("resolved_on IS NULL").
		Set("sync_conflict_local_data", ld).
		Set("sync_conflict_external_data", ed).
		Set("sync_conflict_fields", cf).
		Set("updated_on", time.Now())

	if err := db.ExecUpdate(ub); err != nil {
		return e.W(err, ECodeCF0403)
	}

	return nil
}

// ConflictGet performs the select based on the param filters
func ConflictGet(db *gosql.Connection, p *ConflictGetParam) (
	conflictList []*model.Conflict, count int, err error) {
	fields := `sync_conflict_id, sync_conflict_entity_type,
		sync_conflict_entity_id, sync_conflict_external_item_id,
		sync_conflict_local_data, sync_conflict_external_data,
		sync_conflict_fields, detected_on, resolved_on,
		sync_conflict_resolution_type, sync_conflict_resolved_by`

	sb := db.Select("{fields}").
		From(ConflictTableName)

	if p.ID != nil && *p.ID >= 0 {
		sb = sb.Where("sync_conflict_id=?", *p.ID)
	}

	if p.EntityType != nil && len(*p.EntityType) > 0 {
		sb = sb.Where("sync_conflict_entity_type=?", *p.EntityType)
	}

	if p.EntityID != nil && *p.EntityID >= 0 {
		sb = sb.Where("sync_conflict_entity_id=?", *p.EntityID)
	}

	if p.Unresolved {
		sb = sb.Where("resolved_on IS NULL")
	}

	if p.FlagCount {
		stmt, bindList, err := sb.ToSql()
		if err != nil {
			return nil, 0, e.W(err, ECodeCF0404)
		}
		row := db.QueryRow(strings.Replace(stmt, "{fields}", "count(*)", 1),
			bindList...)
		if err := row.Scan(&count); err != nil {
			return nil, 0, e.W(err, ECodeCF0405)
		}
	}

	if p.Limit != nil && *p.Limit > 0 {
		sb = sb.Limit(*p.Limit)
	}
	if p.Offset != nil {
		sb = sb.Offset(*p.Offset)
	}

	sb = sb.OrderBy("detected_on desc, sync_conflict_id desc")

	stmt, bindList, err := sb.ToSql()
	if err != nil {
		return nil, 0, e.W(err, ECodeCF0406)
	}
	stmt = strings.Replace(stmt, "{fields}", fields, 1)

	rows, err := db.Query(stmt, bindList...)
	if err != nil {
		return nil, 0, e.W(err, ECodeCF0407)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := conflictScan(rows)
		if err != nil {
			return nil, 0, e.W(err, ECodeCF0408)
		}

		if p.DataHandler != nil {
			if err := p.DataHandler(c); err != nil {
				return nil, 0, e.W(err, ECodeCF0408)
			}
		} else {
			conflictList = append(conflictList, c)
		}
	}

	return conflictList, count, nil
}

// conflictScan scans a conflict row
func conflictScan(rows *gosql.Rows) (c *model.Conflict, err error) {
	c = &model.Conflict{}

	var entityType string
	var localData, externalData, conflictFields []byte
	var resolvedOn sql.NullTime
	var resolutionType, resolvedBy sql.NullString

	if err := rows.Scan(&c.ID, &entityType, &c.EntityID, &c.ExternalItemID,
		&localData, &externalData, &conflictFields,
		&c.DetectedAt, &resolvedOn, &resolutionType, &resolvedBy); err != nil {
		return nil, e.W(err, ECodeCF0409)
	}

	c.EntityType = recordmodel.EntityType(entityType)
	if err := json.Unmarshal(localData, &c.LocalData); err != nil {
		return nil, e.W(err, ECodeCF0409)
	}
	if err := json.Unmarshal(externalData, &c.ExternalData); err != nil {
		return nil, e.W(err, ECodeCF0409)
	}
	if err := json.Unmarshal(conflictFields, &c.ConflictFields); err != nil {
		return nil, e.W(err, ECodeCF0409)
	}

	if resolvedOn.Valid {
		c.ResolvedAt = &resolvedOn.Time
	}
	if resolutionType.Valid {
		rt := model.ResolutionType(resolutionType.String)
		c.ResolutionType = &rt
	}
	if resolvedBy.Valid {
		c.ResolvedBy = &resolvedBy.String
	}

	return c, nil
}

// ConflictGetByID returns the conflict with the specified id
func ConflictGetByID(db *gosql.Connection, id int) (c *model.Conflict, err error) {
	limit := uint64(1)
	p := &ConflictGetParam{
		Limit: &limit,
		ID:    &id,
	}

	conflictList, _, err := ConflictGet(db, p)
	if err != nil {
		return nil, e.W(err, ECodeCF040A)
	}

	if len(conflictList) == 0 {
		return nil, e.N(ECodeCF040A, e.MsgConflictDoesNotExist)
	}

	return conflictList[0], nil
}

// ConflictGetOpenByEntity returns the unresolved conflict for the entity if
// one exists, otherwise nil
func ConflictGetOpenByEntity(db *gosql.Connection, et recordmodel.EntityType,
	entityID int) (c *model.Conflict, err error) {
	limit := uint64(1)
	entityType := string(et)
	p := &ConflictGetParam{
		Limit:      &limit,
		EntityType: &entityType,
		EntityID:   &entityID,
		Unresolved: true,
	}

	conflictList, _, err := ConflictGet(db, p)
	if err != nil {
		return nil, e.W(err, ECodeCF040A)
	}

	if len(conflictList) == 0 {
		return nil, nil
	}

	return conflictList[0], nil
}

// ConflictCountOpen returns the number of unresolved conflicts
func ConflictCountOpen(db *gosql.Connection) (count int, err error) {
	p := &ConflictGetParam{
		Unresolved: true,
		FlagCount:  true,
	}
	limit := uint64(1)
	p.Limit = &limit

	_, count, err = ConflictGet(db, p)
	if err != nil {
		return 0, e.W(err, ECodeCF040A)
	}

	return count, nil
}

// ConflictMarkResolved stamps the resolution onto an open conflict. Returns
// false when the conflict was already resolved (the update matches nothing),
// which the resolver treats as the idempotent no-op case.
func ConflictMarkResolved(db *gosql.Connection, id int,
	resolutionType model.ResolutionType, resolvedBy *string) (
	updated bool, err error) {
	ub := db.Update(ConflictTableName).
		Where("sync_conflict_id=?", id).
		Where("resolved_on IS NULL").
		Set("resolved_on", time.Now()).
		Set("sync_conflict_resolution_type", string(resolutionType)).
		Set("sync_conflict_resolved_by", resolvedBy).
		Set("updated_on", time.Now())

	count, err := db.ExecUpdateReturningCount(ub)
	if err != nil {
		return false, e.W(err, ECodeCF040A)
	}

	return count == 1, nil
}
