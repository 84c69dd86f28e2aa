package sqlmodel

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	"github.com/harborview/crmsync/rules/model"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/lib/pq"
)

const (
	RuleTableName = "auto_resolution_rule"

	ECodeRL0201 = e.CodeRL02 + "01"
	ECodeRL0202 = e.CodeRL02 + "02"
	ECodeRL0203 = e.CodeRL02 + "03"
	ECodeRL0204 = e.CodeRL02 + "04"
	ECodeRL0205 = e.CodeRL02 + "05"
	ECodeRL0206 = e.CodeRL02 + "06"
	ECodeRL0207 = e.CodeRL02 + "07"
	ECodeRL0208 = e.CodeRL02 + "08"
	ECodeRL0209 = e.CodeRL02 + "09"
	ECodeRL020A = e.CodeRL02 + "0A"
	ECodeRL020B = e.CodeRL02 + "0B"
)

// RuleGetParam model
type RuleGetParam struct {
	Limit       *uint64
	Offset      *uint64
	ID          *int
	EntityTypes *[]string
	OnlyEnabled bool
	FlagCount   bool
	DataHandler func(*model.Rule) error
}

// RuleInsert performs the DB operation to insert a new rule
func RuleInsert(db *gosql.Connection, input *model.Rule) (id int, err error) {
	if !input.PreferredSource.Valid() {
		return 0, e.N(ECodeRL0201,
			fmt.Sprintf("invalid preferred source: %s", input.PreferredSource))
	}

	ib := db.Insert(RuleTableName).
		Columns(`rule_name, rule_entity_type, rule_field_name,
			rule_preferred_source, rule_enabled, rule_priority,
			rule_created_by, created_on, updated_on`).
		Values(input.Name, input.EntityType, input.FieldName,
			string(input.PreferredSource), input.IsEnabled, input.Priority,
			input.CreatedBy, "now()", "now()").
		Suffix(`RETURNING rule_id`)

	id, err = db.ExecInsertReturningID(ib)
	if err != nil {
		return 0, e.W(err, ECodeRL0202)
	}

	return id, nil
}

// RuleUpdate performs the DB operation to update a rule
func RuleUpdate(db *gosql.Connection, input *model.Rule) (err error) {
	if !input.PreferredSource.Valid() {
		return e.N(ECodeRL0203,
			fmt.Sprintf("invalid preferred source: %s", input.PreferredSource))
	}

	ub := db.Update(RuleTableName).
		Where("rule_id=?", input.ID).
		Set("rule_name", input.Name).
		Set("rule_entity_type", input.EntityType).
		Set("rule_field_name", input.FieldName).
		Set("rule_preferred_source", string(input.PreferredSource)).
		Set("rule_enabled", input.IsEnabled).
		Set("rule_priority", input.Priority).
		Set("updated_on", "now()")

	count, err := db.ExecUpdateReturningCount(ub)
	if err != nil {
		return e.W(err, ECodeRL0204)
	}
	if count == 0 {
		return e.N(ECodeRL0204, e.MsgRuleDoesNotExist)
	}

	return nil
}

// RuleDelete performs the DB operation to delete a rule
func RuleDelete(db *gosql.Connection, id int) (err error) {
	delB := db.Delete(RuleTableName).
		Where("rule_id=?", id)

	if err := db.ExecDelete(delB); err != nil {
		return e.W(err, ECodeRL0205)
	}

	return nil
}

// RuleGet performs the select based on the param filters. Results are
// ordered by priority descending, then creation, then id, which is the
// precedence order the engine expects.
func RuleGet(db *gosql.Connection, p *RuleGetParam) (
	ruleList []*model.Rule, count int, err error) {
	fields := `rule_id, rule_name, rule_entity_type, rule_field_name,
		rule_preferred_source, rule_enabled, rule_priority, rule_created_by,
		created_on`

	sb := db.Select("{fields}").
		From(RuleTableName)

	if p.ID != nil && *p.ID >= 0 {
		sb = sb.Where("rule_id=?", *p.ID)
	}

	if p.EntityTypes != nil && len(*p.EntityTypes) > 0 {
		sb = sb.Where("rule_entity_type = ANY(?)", pq.Array(*p.EntityTypes))
	}

	if p.OnlyEnabled {
		sb = sb.Where("rule_enabled=?", true)
	}

	if p.FlagCount {
		stmt, bindList, err := sb.ToSql()
		if err != nil {
			return nil, 0, e.W(err, ECodeRL0206)
		}
		row := db.QueryRow(strings.Replace(stmt, "{fields}", "count(*)", 1),
			bindList...)
		if err := row.Scan(&count); err != nil {
			return nil, 0, e.W(err, ECodeRL0207)
		}
	}

	if p.Limit != nil && *p.Limit > 0 {
		sb = sb.Limit(*p.Limit)
	}
	if p.Offset != nil {
		sb = sb.Offset(*p.Offset)
	}

	sb = sb.OrderBy("rule_priority desc, created_on asc, rule_id asc")

	stmt, bindList, err := sb.ToSql()
	if err != nil {
		return nil, 0, e.W(err, ECodeRL0208)
	}
	stmt = strings.Replace(stmt, "{fields}", fields, 1)

	rows, err := db.Query(stmt, bindList...)
	if err != nil {
		return nil, 0, e.W(err, ECodeRL0209)
	}
	defer rows.Close()

	for rows.Next() {
		r := &model.Rule{}
		var fieldName sql.NullString
		var source string
		if err := rows.Scan(&r.ID, &r.Name, &r.EntityType, &fieldName,
			&source, &r.IsEnabled, &r.Priority, &r.CreatedBy,
			&r.CreatedOn); err != nil {
			return nil, 0, e.W(err, ECodeRL020A)
		}

		if fieldName.Valid {
			r.FieldName = &fieldName.String
		}
		r.PreferredSource = model.PreferredSource(source)

		if p.DataHandler != nil {
			if err := p.DataHandler(r); err != nil {
				return nil, 0, e.W(err, ECodeRL020A)
			}
		} else {
			ruleList = append(ruleList, r)
		}
	}

	return ruleList, count, nil
}

// RuleGetByID returns the rule with the specified id
func RuleGetByID(db *gosql.Connection, id int) (r *model.Rule, err error) {
	limit := uint64(1)
	p := &RuleGetParam{
		Limit: &limit,
		ID:    &id,
	}

	ruleList, _, err := RuleGet(db, p)
	if err != nil {
		return nil, e.W(err, ECodeRL020B)
	}

	if len(ruleList) == 0 {
		return nil, e.N(ECodeRL020B, e.MsgRuleDoesNotExist)
	}

	return ruleList[0], nil
}

// RulesGetForEntity returns all enabled rules covering the entity type
// (exact or wildcard), in precedence order
func RulesGetForEntity(db *gosql.Connection, et recordmodel.EntityType) (
	ruleList []*model.Rule, err error) {
	entityTypes := []string{string(et), model.EntityTypeWildcard}
	p := &RuleGetParam{
		EntityTypes: &entityTypes,
		OnlyEnabled: true,
	}

	ruleList, _, err = RuleGet(db, p)
	if err != nil {
		return nil, e.W(err, ECodeRL020B)
	}

	return ruleList, nil
}

// RuleReorder reassigns priorities for the passed rule ids, first id gets
// the highest priority. The updates run in a single txn so concurrent rule
// lookups always observe either the old or the new ordering, never a
// partially applied one.
func RuleReorder(db *gosql.Connection, orderedIDs []int) (err error) {
	tx, err := db.BeginReturnDB()
	if err != nil {
		return e.W(err, ECodeRL020B)
	}
	defer tx.RollbackIfInTxn()

	for i, id := range orderedIDs {
		priority := (len(orderedIDs) - i) * 10

		ub := tx.Update(RuleTableName).
			Where("rule_id=?", id).
			Set("rule_priority", priority).
			Set("updated_on", "now()")

		count, err := tx.ExecUpdateReturningCount(ub)
		if err != nil {
			return e.W(err, ECodeRL020B)
		}
		if count == 0 {
			return e.N(ECodeRL020B,
				fmt.Sprintf("%s: %d", e.MsgRuleDoesNotExist, id))
		}
	}

	if err := tx.Commit(); err != nil {
		return e.W(err, ECodeRL020B)
	}

	return nil
}
