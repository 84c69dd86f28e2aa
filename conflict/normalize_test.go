package conflict

import "testing"

func TestNormalizeValueUnwrapsNestedShapes(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"plain string", "a@x.com", "a@x.com"},
		{"trimmed", "  a@x.com ", "a@x.com"},
		{"text wrapper", map[string]interface{}{"text": "a@x.com"}, "a@x.com"},
		{"value wrapper", map[string]interface{}{"value": "555-0101"}, "555-0101"},
		{"nested wrappers", map[string]interface{}{
			"text": map[string]interface{}{"value": "deep"}}, "deep"},
		{"nil", nil, ""},
		{"bool", true, "true"},
		{"whole float", float64(42), "42"},
		{"fraction", 1.5, "1.5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizedString(tc.in); got != tc.want {
				t.Errorf("NormalizedString(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeValueKeepsMultiKeyMaps(t *testing.T) {
	m := map[string]interface{}{"text": "x", "extra": "y"}
	if _, ok := NormalizeValue(m).(map[string]interface{}); !ok {
		t.Fatal("multi-key map should not be unwrapped")
	}
}

func TestValuesEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b interface{}
		want bool
	}{
		{"same strings", "x", "x", true},
		{"wrapped vs scalar", map[string]interface{}{"text": "x"}, "x", true},
		{"nil vs empty", nil, "", true},
		{"different", "a@x.com", "b@x.com", false},
		{"number vs string form", float64(7), "7", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValuesEqual(tc.a, tc.b); got != tc.want {
				t.Errorf("ValuesEqual(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}
