package conflict

import (
	"reflect"
	"testing"
)

func TestDetectNoDivergence(t *testing.T) {
	local := map[string]interface{}{"email": "a@x.com", "phone": "555"}
	external := map[string]interface{}{
		"email": map[string]interface{}{"text": "a@x.com"},
		"phone": "555",
	}

	if got := Detect(local, external, []string{"email", "phone"}); got != nil {
		t.Fatalf("expected no conflict fields, got %v", got)
	}
}

func TestDetectCollectsDifferingFields(t *testing.T) {
	local := map[string]interface{}{
		"email": "a@x.com",
		"phone": "555-0101",
		"title": "CTO",
	}
	external := map[string]interface{}{
		"email": map[string]interface{}{"text": "b@x.com"},
		"phone": "555-0102",
		"title": "CTO",
	}

	got := Detect(local, external, []string{"email", "phone", "title"})
	want := []string{"email", "phone"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Detect = %v, want %v", got, want)
	}
}

func TestDetectRestrictedToPassedFields(t *testing.T) {
	local := map[string]interface{}{"email": "a@x.com", "notes": "local only"}
	external := map[string]interface{}{"email": "a@x.com", "notes": "other"}

	// notes differs but is not in the synchronized field set
	if got := Detect(local, external, []string{"email"}); got != nil {
		t.Fatalf("expected no conflict fields, got %v", got)
	}
}

func TestDetectMissingExternalField(t *testing.T) {
	local := map[string]interface{}{"email": "a@x.com", "phone": nil}
	external := map[string]interface{}{"email": "a@x.com"}

	// absent external field vs NULL local column is not a divergence
	if got := Detect(local, external, []string{"email", "phone"}); got != nil {
		t.Fatalf("expected no conflict fields, got %v", got)
	}
}
