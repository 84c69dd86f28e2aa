package conflict

import (
	"reflect"
	"testing"
)

func TestMergeExternalFields(t *testing.T) {
	conflictFields := []string{"email", "phone"}

	got, err := MergeExternalFields(conflictFields, map[string]string{
		"email": "local",
		"phone": "external",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"phone"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeExternalFields = %v, want %v", got, want)
	}
}

func TestMergeExternalFieldsOrderFollowsConflictFields(t *testing.T) {
	conflictFields := []string{"first_name", "email", "phone"}

	got, err := MergeExternalFields(conflictFields, map[string]string{
		"phone":      "external",
		"first_name": "external",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"first_name", "phone"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeExternalFields = %v, want %v", got, want)
	}
}

func TestMergeExternalFieldsRequiresSelections(t *testing.T) {
	if _, err := MergeExternalFields([]string{"email"}, nil); err == nil {
		t.Fatal("expected error for missing selections")
	}
}

func TestMergeExternalFieldsRejectsUnknownField(t *testing.T) {
	_, err := MergeExternalFields([]string{"email"},
		map[string]string{"website": "external"})
	if err == nil {
		t.Fatal("expected error for non-conflicting field selection")
	}
}

func TestMergeExternalFieldsRejectsUnknownSide(t *testing.T) {
	_, err := MergeExternalFields([]string{"email"},
		map[string]string{"email": "remote"})
	if err == nil {
		t.Fatal("expected error for invalid selection side")
	}
}
