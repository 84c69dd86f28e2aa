// Package rules implements the auto resolution rule engine: a pure decision
// layer that picks, for a detected divergence, which side should win without
// human input. Rule persistence lives in rules/sqlmodel; the matcher itself
// operates on an in-memory rule set so the caller controls read consistency.
package rules

import (
	recordmodel "github.com/harborview/crmsync/record/model"
	"github.com/harborview/crmsync/rules/model"
)

// Verdict the outcome of a successful rule match
type Verdict struct {
	Rule   *model.Rule
	Source model.PreferredSource
}

// better reports whether candidate should replace current as the effective
// rule: higher priority wins, then earlier creation, then lower id
func better(candidate, current *model.Rule) bool {
	if current == nil {
		return true
	}
	if candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}
	if !candidate.CreatedOn.Equal(current.CreatedOn) {
		return candidate.CreatedOn.Before(current.CreatedOn)
	}
	return candidate.ID < current.ID
}

// FindMatchingRule returns the effective enabled rule for the entity
// type/field combination, or nil if none applies. A field specific rule
// always beats an entity wide rule, regardless of priority; priorities only
// break ties between rules at the same specificity.
func FindMatchingRule(ruleList []*model.Rule, entityType recordmodel.EntityType,
	fieldName string) (match *model.Rule) {

	if fieldName != "" {
		if match = findFieldRule(ruleList, entityType, fieldName); match != nil {
			return match
		}
	}

	return findEntityRule(ruleList, entityType)
}

// findFieldRule returns the best enabled rule naming the exact field
func findFieldRule(ruleList []*model.Rule, entityType recordmodel.EntityType,
	fieldName string) (match *model.Rule) {
	for _, r := range ruleList {
		if !r.IsEnabled || !r.AppliesTo(entityType) {
			continue
		}
		if r.FieldName == nil || *r.FieldName != fieldName {
			continue
		}
		if better(r, match) {
			match = r
		}
	}

	return match
}

// findEntityRule returns the best enabled entity wide rule
func findEntityRule(ruleList []*model.Rule, entityType recordmodel.EntityType) (
	match *model.Rule) {
	for _, r := range ruleList {
		if !r.IsEnabled || !r.AppliesTo(entityType) {
			continue
		}
		if r.FieldName != nil {
			continue
		}
		if better(r, match) {
			match = r
		}
	}

	return match
}

// TryAutoResolve decides whether the conflict as a whole can be resolved
// automatically. Conflicting fields are checked in order and the first field
// with a field level rule decides for the entire record; if no individual
// field matches, a single entity wide rule check is the fallback.
//
// Note the whole conflict is settled with the first matching field's
// preferred source, even if later fields have rules preferring the other
// side. A per-field merge would be more precise, but a partially applied
// resolution would leave the record in an ambiguous state, so the engine
// deliberately returns one all-or-nothing verdict.
func TryAutoResolve(ruleList []*model.Rule, entityType recordmodel.EntityType,
	conflictFields []string) (verdict *Verdict) {

	for _, field := range conflictFields {
		if r := findFieldRule(ruleList, entityType, field); r != nil {
			return &Verdict{Rule: r, Source: r.PreferredSource}
		}
	}

	if r := findEntityRule(ruleList, entityType); r != nil {
		return &Verdict{Rule: r, Source: r.PreferredSource}
	}

	return nil
}
