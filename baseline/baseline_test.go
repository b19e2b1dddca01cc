package baseline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReportDiagnosticsOnly(t *testing.T) {
	got := Report([]string{"b", "a"}, []string{"examined.dll\t1.0.0.0"}, false)
	want := "b\na\n"
	if got != want {
		t.Errorf("Report() = %q, want %q", got, want)
	}
}

func TestReportWithExaminedList(t *testing.T) {
	got := Report([]string{"a"}, []string{"A.dll\t1.0.0.0"}, true)
	want := "a\nA.dll\t1.0.0.0\n"
	if got != want {
		t.Errorf("Report() = %q, want %q", got, want)
	}
}

// Testable property 5 (spec.md §8): seeding a baseline then re-running with
// identical inputs yields an unchanged file and a matched result.
func TestCompareSeedsThenMatches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BinaryCompatReport.txt")
	report := "a\nb\n"

	first, err := Compare(path, report)
	if err != nil {
		t.Fatalf("Compare (seed): %v", err)
	}
	if !first.Seeded || !first.Matched {
		t.Errorf("first Compare = %+v, want Seeded && Matched", first)
	}

	second, err := Compare(path, report)
	if err != nil {
		t.Fatalf("Compare (rerun): %v", err)
	}
	if second.Seeded || !second.Matched {
		t.Errorf("second Compare = %+v, want Matched without reseeding", second)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != report {
		t.Errorf("baseline file = %q, want unchanged %q", data, report)
	}
}

func TestCompareDetectsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BinaryCompatReport.txt")
	if _, err := Compare(path, "old line\n"); err != nil {
		t.Fatalf("Compare (seed): %v", err)
	}

	result, err := Compare(path, "new line\n")
	if err != nil {
		t.Fatalf("Compare (mismatch): %v", err)
	}
	if result.Matched {
		t.Error("expected a mismatch")
	}
	if result.Diff == "" {
		t.Error("expected a non-empty diff")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "new line\n" {
		t.Errorf("baseline file should be overwritten with the new report, got %q", data)
	}
}
