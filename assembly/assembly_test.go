package assembly

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVersionCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0.0", "1.0.0.0", 0},
		{"1.0.0.0", "2.0.0.0", -1},
		{"2.0.0.0", "1.9.9.9", 1},
		{"4.0.0.0", "4.0.0.1", -1},
	}
	for _, c := range cases {
		va, err := ParseVersion(c.a)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", c.a, err)
		}
		vb, err := ParseVersion(c.b)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", c.b, err)
		}
		if got := va.Compare(vb); got != c.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestVersionParseLenient(t *testing.T) {
	v, err := ParseVersion("4.1")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	want := Version{Major: 4, Minor: 1}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("ParseVersion(\"4.1\") mismatch (-want +got):\n%s", diff)
	}
}

func TestVersionParseInvalid(t *testing.T) {
	for _, s := range []string{"", "a.b", "1..2", "1.2.3.4.5"} {
		if _, err := ParseVersion(s); err == nil {
			t.Errorf("ParseVersion(%q): expected error", s)
		}
	}
}

func TestIdEqual(t *testing.T) {
	a := Id{ShortName: "Contoso.Core", Version: Version{1, 0, 0, 0}, Culture: "neutral",
		PublicKeyToken: []byte{1, 2, 3, 4, 5, 6, 7, 8}, HasPublicKeyToken: true}
	b := a
	b.ShortName = "CONTOSO.CORE"
	if !a.Equal(b) {
		t.Error("Equal should be case-insensitive on ShortName")
	}

	c := a
	c.Version = Version{1, 0, 0, 1}
	if a.Equal(c) {
		t.Error("Equal should distinguish different versions")
	}

	d := a
	d.HasPublicKeyToken = false
	if a.Equal(d) {
		t.Error("Equal should distinguish presence of a public key token")
	}
}

func TestIdFullName(t *testing.T) {
	withToken := Id{ShortName: "mscorlib", Version: Version{4, 0, 0, 0},
		PublicKeyToken: []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89}, HasPublicKeyToken: true}
	want := "mscorlib, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089"
	if got := withToken.FullName(); got != want {
		t.Errorf("FullName() = %q, want %q", got, want)
	}

	noToken := Id{ShortName: "Contoso.Core", Version: Version{1, 2, 3, 4}}
	want = "Contoso.Core, Version=1.2.3.4, Culture=neutral, PublicKeyToken=null"
	if got := noToken.FullName(); got != want {
		t.Errorf("FullName() = %q, want %q", got, want)
	}
}

func TestParseIVTArgumentNameOnly(t *testing.T) {
	f := parseIVTArgument("Contoso.Core.Tests")
	if f.ShortName != "Contoso.Core.Tests" || f.HasPublicKey {
		t.Errorf("parseIVTArgument = %+v", f)
	}
}

func TestParseIVTArgumentWithPublicKey(t *testing.T) {
	f := parseIVTArgument("Contoso.Core.Tests, PublicKey=0024000004800000940000000602000000240000525341310004000001000100cf7c")
	if f.ShortName != "Contoso.Core.Tests" {
		t.Errorf("ShortName = %q", f.ShortName)
	}
	if !f.HasPublicKey || len(f.PublicKeyToken) != 8 {
		t.Errorf("expected an 8-byte derived token, got %+v", f)
	}
}

func TestTypeDefViewFullName(t *testing.T) {
	v := TypeDefView{Name: "Widget", Namespace: "Contoso.Core"}
	if got := v.FullName(); got != "Contoso.Core.Widget" {
		t.Errorf("FullName() = %q", got)
	}
	v2 := TypeDefView{Name: "Widget"}
	if got := v2.FullName(); got != "Widget" {
		t.Errorf("FullName() with no namespace = %q", got)
	}
}

func TestTypeDefViewHasMember(t *testing.T) {
	v := TypeDefView{Name: "Widget", Members: []string{".ctor", "Render"}}
	if !v.HasMember("Render") {
		t.Error("expected HasMember(\"Render\") to be true")
	}
	if v.HasMember("Missing") {
		t.Error("expected HasMember(\"Missing\") to be false")
	}
}

func TestIsFacade(t *testing.T) {
	def := &Def{Module: &Module{
		TypeDefs:      []TypeDefView{{Name: "<Module>"}},
		ExportedTypes: []ExportedTypeView{{Name: "Widget", Namespace: "Contoso.Core"}},
	}}
	if !IsFacade(def) {
		t.Error("expected a single <Module> type plus an exported type to be a facade")
	}

	notFacade := &Def{Module: &Module{
		TypeDefs: []TypeDefView{{Name: "<Module>"}, {Name: "Widget"}},
	}}
	if IsFacade(notFacade) {
		t.Error("a concrete type besides <Module> should not be a facade")
	}

	noExports := &Def{Module: &Module{TypeDefs: []TypeDefView{{Name: "<Module>"}}}}
	if IsFacade(noExports) {
		t.Error("no exported types should not be a facade")
	}
}

func TestIsFrameworkFixedNames(t *testing.T) {
	for _, name := range []string{"mscorlib", "netstandard", "System.Core"} {
		def := &Def{Id: Id{ShortName: name}, Path: "nonexistent-" + name}
		if !computeIsFramework(def) {
			t.Errorf("expected %q to classify as framework", name)
		}
	}
	def := &Def{Id: Id{ShortName: "Contoso.Core"}, Path: "nonexistent-contoso"}
	if computeIsFramework(def) {
		t.Error("Contoso.Core should not classify as framework")
	}
}
