package store

import (
	"testing"
)

func catalog() []SoftwareVersion {
	return []SoftwareVersion{
		{ID: 1, Name: "5.1.0", Selectable: true},
		{ID: 2, Name: "5.2.0", Selectable: true},
		{ID: 3, Name: "5.3.0", Selectable: true},
		{ID: 4, Name: "5.4.0", Selectable: false},
		{ID: 5, Name: "trunk", Selectable: true},
	}
}

func names(versions []SoftwareVersion) []string {
	out := make([]string, len(versions))
	for i, v := range versions {
		out[i] = v.Name
	}
	return out
}

func TestCompatibleVersionsRange(t *testing.T) {
	pred, err := ConstraintPredicate(">= 5.2.0 <= 5.3.0")
	if err != nil {
		t.Fatalf("ConstraintPredicate failed: %v", err)
	}

	got := names(CompatibleVersions(catalog(), pred))
	want := []string{"5.2.0", "5.3.0"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}

func TestCompatibleVersionsSkipsUnselectable(t *testing.T) {
	pred, err := ConstraintPredicate(">= 5.4.0")
	if err != nil {
		t.Fatalf("ConstraintPredicate failed: %v", err)
	}
	if got := CompatibleVersions(catalog(), pred); len(got) != 0 {
		t.Errorf("5.4.0 is not selectable, expected no matches, got %v", names(got))
	}
}

func TestCompatibleVersionsEmptyResultIsValid(t *testing.T) {
	pred, err := ConstraintPredicate(">= 9.0.0")
	if err != nil {
		t.Fatalf("ConstraintPredicate failed: %v", err)
	}
	if got := CompatibleVersions(catalog(), pred); got != nil {
		t.Errorf("expected nil slice for no matches, got %v", names(got))
	}
}

func TestConstraintPredicateInvalidExpr(t *testing.T) {
	if _, err := ConstraintPredicate("not a constraint"); err == nil {
		t.Fatal("expected error for an unparseable constraint")
	}
}

func TestVersionsEqual(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"1.0.0", "1.0.0", true},
		{"1.0.0", "1.0", true},
		{"1.0.0", "1.0.1", false},
		{"not-semver", "not-semver", true},
		{"not-semver", "1.0.0", false},
	}
	for _, tc := range cases {
		if got := VersionsEqual(tc.a, tc.b); got != tc.want {
			t.Errorf("VersionsEqual(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestMinVersionName(t *testing.T) {
	versions := []SoftwareVersion{
		{Name: "5.3.0"},
		{Name: "trunk"},
		{Name: "5.1.0"},
		{Name: "5.2.0"},
	}
	if got := MinVersionName(versions); got != "5.1.0" {
		t.Errorf("expected 5.1.0, got %q", got)
	}
	if got := MinVersionName(nil); got != "" {
		t.Errorf("expected empty name for empty list, got %q", got)
	}
}
