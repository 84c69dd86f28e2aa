package rules

import (
	"testing"
	"time"

	recordmodel "github.com/harborview/crmsync/record/model"
	"github.com/harborview/crmsync/rules/model"
)

func strPtr(s string) *string { return &s }

func rule(id int, entityType string, fieldName *string,
	source model.PreferredSource, priority int, enabled bool,
	createdOn time.Time) *model.Rule {
	return &model.Rule{
		ID:              id,
		Name:            "r",
		EntityType:      entityType,
		FieldName:       fieldName,
		PreferredSource: source,
		IsEnabled:       enabled,
		Priority:        priority,
		CreatedOn:       createdOn,
	}
}

func TestFindMatchingRuleFieldBeatsEntityWide(t *testing.T) {
	now := time.Now()
	ruleList := []*model.Rule{
		// Entity wide rule with much higher priority
		rule(1, "contact", nil, model.PreferredSourceLocal, 100, true, now),
		rule(2, "contact", strPtr("email"), model.PreferredSourceExternal, 1, true, now),
	}

	m := FindMatchingRule(ruleList, recordmodel.EntityTypeContact, "email")
	if m == nil || m.ID != 2 {
		t.Fatalf("expected field specific rule 2 to win, got %+v", m)
	}
}

func TestFindMatchingRuleDisabledNeverMatch(t *testing.T) {
	now := time.Now()
	ruleList := []*model.Rule{
		rule(1, "contact", strPtr("email"), model.PreferredSourceExternal, 10, false, now),
		rule(2, "contact", nil, model.PreferredSourceLocal, 10, false, now),
	}

	if m := FindMatchingRule(ruleList, recordmodel.EntityTypeContact, "email"); m != nil {
		t.Fatalf("expected no match from disabled rules, got rule %d", m.ID)
	}
}

func TestFindMatchingRuleWildcardEntityType(t *testing.T) {
	now := time.Now()
	ruleList := []*model.Rule{
		rule(1, model.EntityTypeWildcard, strPtr("phone"), model.PreferredSourceLocal, 5, true, now),
	}

	m := FindMatchingRule(ruleList, recordmodel.EntityTypeOrganization, "phone")
	if m == nil || m.ID != 1 {
		t.Fatalf("expected wildcard rule to match, got %+v", m)
	}
}

func TestFindMatchingRulePriorityAndCreationTieBreaks(t *testing.T) {
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	later := earlier.Add(24 * time.Hour)

	ruleList := []*model.Rule{
		rule(1, "contact", strPtr("email"), model.PreferredSourceLocal, 5, true, later),
		rule(2, "contact", strPtr("email"), model.PreferredSourceExternal, 10, true, later),
		rule(3, "contact", strPtr("email"), model.PreferredSourceLocal, 10, true, earlier),
	}

	// Rule 2 and 3 share the top priority; 3 was created earlier so it wins
	m := FindMatchingRule(ruleList, recordmodel.EntityTypeContact, "email")
	if m == nil || m.ID != 3 {
		t.Fatalf("expected rule 3 to win on creation order, got %+v", m)
	}
}

func TestFindMatchingRuleFallsBackToEntityWide(t *testing.T) {
	now := time.Now()
	ruleList := []*model.Rule{
		rule(1, "contact", strPtr("phone"), model.PreferredSourceLocal, 5, true, now),
		rule(2, "contact", nil, model.PreferredSourceExternal, 1, true, now),
	}

	m := FindMatchingRule(ruleList, recordmodel.EntityTypeContact, "email")
	if m == nil || m.ID != 2 {
		t.Fatalf("expected entity wide fallback, got %+v", m)
	}
}

func TestTryAutoResolveFirstFieldWins(t *testing.T) {
	now := time.Now()
	ruleList := []*model.Rule{
		rule(1, "contact", strPtr("email"), model.PreferredSourceExternal, 10, true, now),
		rule(2, "contact", strPtr("phone"), model.PreferredSourceLocal, 10, true, now),
	}

	// Both fields have rules preferring different sources; the first
	// conflicting field decides for the whole record.
	v := TryAutoResolve(ruleList, recordmodel.EntityTypeContact,
		[]string{"email", "phone"})
	if v == nil || v.Rule.ID != 1 || v.Source != model.PreferredSourceExternal {
		t.Fatalf("expected email rule verdict, got %+v", v)
	}

	v = TryAutoResolve(ruleList, recordmodel.EntityTypeContact,
		[]string{"phone", "email"})
	if v == nil || v.Rule.ID != 2 || v.Source != model.PreferredSourceLocal {
		t.Fatalf("expected phone rule verdict, got %+v", v)
	}
}

func TestTryAutoResolveEntityWideFallback(t *testing.T) {
	now := time.Now()
	ruleList := []*model.Rule{
		rule(1, "contact", nil, model.PreferredSourceExternal, 1, true, now),
	}

	v := TryAutoResolve(ruleList, recordmodel.EntityTypeContact,
		[]string{"email", "phone"})
	if v == nil || v.Rule.ID != 1 {
		t.Fatalf("expected entity wide verdict, got %+v", v)
	}
}

func TestTryAutoResolveNoRules(t *testing.T) {
	if v := TryAutoResolve(nil, recordmodel.EntityTypeContact, []string{"email"}); v != nil {
		t.Fatalf("expected nil verdict, got %+v", v)
	}
}
