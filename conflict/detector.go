package conflict

// Detect compares the local and external representations of an entity over
// the passed synchronized fields and returns the names of the fields whose
// normalized values differ, in field order. An empty result means both
// sides agree and the record can be considered up to date.
func Detect(localData, externalData map[string]interface{},
	fields []string) (conflictFields []string) {

	for _, f := range fields {
		if !ValuesEqual(localData[f], externalData[f]) {
			conflictFields = append(conflictFields, f)
		}
	}

	return conflictFields
}
