package external

import (
	"github.com/harborview/crmsync/e"
	"github.com/harborview/crmsync/record"
	"github.com/harborview/crmsync/record/model"
)

const (
	ECodeEX0301 = e.CodeEX03 + "01"
)

// PushPayload builds the field payload for a create or update call from a
// local record's data map, restricted to the synchronized field set for the
// entity type. Columns the record does not carry are omitted rather than
// sent as nulls, so the service keeps fields this engine does not manage.
func PushPayload(et model.EntityType,
	data map[string]interface{}) (fields map[string]interface{}, err error) {

	names, err := record.SyncableFieldNames(et)
	if err != nil {
		return nil, e.W(err, ECodeEX0301)
	}

	fields = make(map[string]interface{}, len(names))
	for _, n := range names {
		v, ok := data[n]
		if !ok || v == nil {
			continue
		}
		fields[n] = v
	}

	return fields, nil
}
