package redirect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/binarycompat/bincompat/assembly"
	"github.com/binarycompat/bincompat/checker"
)

const sampleConfig = `<?xml version="1.0" encoding="utf-8"?>
<configuration>
  <runtime>
    <assemblyBinding xmlns="urn:schemas-microsoft-com:asm.v1">
      <dependentAssembly>
        <assemblyIdentity name="B" publicKeyToken="b77a5c561934e089" culture="neutral" />
        <bindingRedirect oldVersion="1.0.0.0-2.0.0.0" newVersion="2.0.0.0" />
      </dependentAssembly>
    </assemblyBinding>
  </runtime>
</configuration>
`

func writeConfig(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestParse(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "A.exe.config")

	redirects, err := New().Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(redirects) != 1 {
		t.Fatalf("Parse returned %d redirects, want 1", len(redirects))
	}
	r := redirects[0]
	if r.Name != "B" {
		t.Errorf("Name = %q, want B", r.Name)
	}
	want := assembly.Version{Major: 1}
	if r.OldMin != want {
		t.Errorf("OldMin = %+v, want %+v", r.OldMin, want)
	}
	want = assembly.Version{Major: 2}
	if r.OldMax != want || r.New != want {
		t.Errorf("OldMax/New = %+v/%+v, want %+v", r.OldMax, r.New, want)
	}
}

// Scenario 4 (spec.md §8): a version mismatch covered by a redirect is
// suppressed.
func TestApplySuppressesMatchingMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "A.exe.config")

	redirects, err := New().Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: filepath.Join(dir, "A.exe")}
	actual := &assembly.Def{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 2}}, Path: filepath.Join(dir, "B.dll")}
	mismatch := &checker.VersionMismatch{
		Referencer: a,
		Expected:   assembly.Ref{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}},
		Actual:     actual,
	}

	New().Apply(path, redirects, []*checker.VersionMismatch{mismatch})

	if !mismatch.Suppressed() {
		t.Error("expected the redirect to suppress this mismatch")
	}
}

func TestApplyLeavesUnrelatedMismatchUnsuppressed(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "A.exe.config")

	redirects, err := New().Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: filepath.Join(dir, "A.exe")}
	actual := &assembly.Def{Id: assembly.Id{ShortName: "C", Version: assembly.Version{Major: 9}}, Path: filepath.Join(dir, "C.dll")}
	mismatch := &checker.VersionMismatch{
		Referencer: a,
		Expected:   assembly.Ref{Id: assembly.Id{ShortName: "C", Version: assembly.Version{Major: 1}}},
		Actual:     actual,
	}

	New().Apply(path, redirects, []*checker.VersionMismatch{mismatch})

	if mismatch.Suppressed() {
		t.Error("a mismatch for an assembly absent from the config should stay unsuppressed")
	}
}
