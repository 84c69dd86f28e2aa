// Package record defines the sync state embedded on syncable local records
// (contacts, organizations) and the closed set of fields the engine is
// allowed to read from and write to on each of them.
package record

import (
	"fmt"

	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/record/model"
)

const (
	ECodeRC0101 = e.CodeRC01 + "01"
	ECodeRC0102 = e.CodeRC01 + "02"
)

// Field maps a synchronized field name to its column on the entity table.
// Values coming back from the external system are only ever applied through
// this table, so an unexpected field name can never mutate another column.
type Field struct {
	Name   string
	Column string
}

var contactFields = []Field{
	{Name: "first_name", Column: "contact_first_name"},
	{Name: "last_name", Column: "contact_last_name"},
	{Name: "email", Column: "contact_email"},
	{Name: "phone", Column: "contact_phone"},
	{Name: "title", Column: "contact_title"},
	{Name: "notes", Column: "contact_notes"},
}

var organizationFields = []Field{
	{Name: "name", Column: "organization_name"},
	{Name: "website", Column: "organization_website"},
	{Name: "phone", Column: "organization_phone"},
	{Name: "industry", Column: "organization_industry"},
	{Name: "address", Column: "organization_address"},
	{Name: "notes", Column: "organization_notes"},
}

// SyncableFields returns the synchronized field set for the entity type
func SyncableFields(et model.EntityType) (fields []Field, err error) {
	switch et {
	case model.EntityTypeContact:
		return contactFields, nil
	case model.EntityTypeOrganization:
		return organizationFields, nil
	}

	return nil, e.N(ECodeRC0101, fmt.Sprintf("invalid entity type: %s", et))
}

// SyncableFieldNames returns the synchronized field names, in the fixed
// order used for diffing
func SyncableFieldNames(et model.EntityType) (names []string, err error) {
	fields, err := SyncableFields(et)
	if err != nil {
		return nil, e.W(err, ECodeRC0102)
	}

	names = make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}

	return names, nil
}

// FieldColumn resolves a field name to its column for the entity type. It
// returns false if the field is not in the syncable set.
func FieldColumn(et model.EntityType, name string) (column string, ok bool) {
	fields, err := SyncableFields(et)
	if err != nil {
		return "", false
	}

	for _, f := range fields {
		if f.Name == name {
			return f.Column, true
		}
	}

	return "", false
}
