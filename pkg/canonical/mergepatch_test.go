package canonical

import (
	"encoding/json"
	"reflect"
	"testing"
)

func mustParse(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestMergePatch(t *testing.T) {
	cases := []struct {
		name   string
		target string
		patch  string
		want   string
	}{
		{
			name:   "recursive object merge",
			target: `{"a": {"b": 0, "c": 2}}`,
			patch:  `{"a": {"b": 1}}`,
			want:   `{"a": {"b": 1, "c": 2}}`,
		},
		{
			name:   "null removes key",
			target: `{"a": 1, "b": 2}`,
			patch:  `{"a": null}`,
			want:   `{"b": 2}`,
		},
		{
			name:   "arrays replaced wholesale",
			target: `{"arr": [1, 2, 3]}`,
			patch:  `{"arr": [1]}`,
			want:   `{"arr": [1]}`,
		},
		{
			name:   "scalar replaces object",
			target: `{"a": {"b": 1}}`,
			patch:  `{"a": 5}`,
			want:   `{"a": 5}`,
		},
		{
			name:   "object replaces scalar",
			target: `{"a": 5}`,
			patch:  `{"a": {"b": 1}}`,
			want:   `{"a": {"b": 1}}`,
		},
		{
			name:   "new key added",
			target: `{"a": 1}`,
			patch:  `{"b": {"c": 2}}`,
			want:   `{"a": 1, "b": {"c": 2}}`,
		},
		{
			name:   "null on missing key is a no-op",
			target: `{"a": 1}`,
			patch:  `{"zz": null}`,
			want:   `{"a": 1}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MergePatch(mustParse(t, tc.target), mustParse(t, tc.patch))
			want := mustParse(t, tc.want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("MergePatch() = %#v, want %#v", got, want)
			}
		})
	}
}

func TestMergePatch_DoesNotMutateInputs(t *testing.T) {
	target := mustParse(t, `{"a": {"b": 1}}`)
	patch := mustParse(t, `{"a": {"b": 2}}`)

	_ = MergePatch(target, patch)

	inner := target.(map[string]any)["a"].(map[string]any)
	if inner["b"].(float64) != 1 {
		t.Errorf("target mutated: %v", target)
	}
}

func TestMergePatch_OverrideAssumptionField(t *testing.T) {
	// The sensitivity-analysis primitive: override one nested field
	// without restating the payload.
	target := mustParse(t, `{"assumptions": {"global_overage_factor": 1.0, "start_date": "2026-01-05"}}`)
	patch := mustParse(t, `{"assumptions": {"global_overage_factor": 1.25}}`)

	got := MergePatch(target, patch).(map[string]any)
	assumptions := got["assumptions"].(map[string]any)
	if assumptions["global_overage_factor"].(float64) != 1.25 {
		t.Errorf("override not applied: %v", assumptions)
	}
	if assumptions["start_date"].(string) != "2026-01-05" {
		t.Errorf("untouched sibling lost: %v", assumptions)
	}
}
