package testutil

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// MustMarshal marshals obj or fails the test.
func MustMarshal(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("MustMarshal() failed: %v", err)
	}
	return data
}

// AssertJSONEq compares two JSON documents regardless of key order and
// prints a unified diff on mismatch.
func AssertJSONEq(t *testing.T, want, got []byte) {
	t.Helper()

	var w, g interface{}
	if err := json.Unmarshal(want, &w); err != nil {
		t.Fatalf("AssertJSONEq() failed to decode want: %v", err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("AssertJSONEq() failed to decode got: %v\n%s", err, got)
	}
	if reflect.DeepEqual(w, g) {
		return
	}

	wantPretty, _ := json.MarshalIndent(w, "", "  ")
	gotPretty, _ := json.MarshalIndent(g, "", "  ")
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(wantPretty)),
		B:        difflib.SplitLines(string(gotPretty)),
		FromFile: "want",
		ToFile:   "got",
		Context:  3,
	})
	t.Errorf("JSON mismatch:\n%s", diff)
}
