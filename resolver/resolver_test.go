package resolver

import (
	"testing"

	"github.com/binarycompat/bincompat/assembly"
)

func idRef(shortName string, v assembly.Version) assembly.Ref {
	return assembly.Ref{Id: assembly.Id{ShortName: shortName, Version: v}}
}

func TestResolveStrictHit(t *testing.T) {
	r := New(assembly.NewLoader(false), nil, nil)
	def := &assembly.Def{Id: assembly.Id{ShortName: "Contoso.Core", Version: assembly.Version{Major: 1}}, Path: "Contoso.Core.dll"}
	r.Register(def)

	got := r.Resolve(idRef("Contoso.Core", assembly.Version{Major: 1}), 0)
	if got != def {
		t.Fatalf("Resolve strict hit = %v, want %v", got, def)
	}
}

func TestResolveLooseHitFallback(t *testing.T) {
	r := New(assembly.NewLoader(false), nil, nil)
	def := &assembly.Def{Id: assembly.Id{ShortName: "Contoso.Core", Version: assembly.Version{Major: 2}}, Path: "Contoso.Core.dll"}
	r.Register(def)

	// Requested version (1.0.0.0) does not match the registered def's
	// version (2.0.0.0), so only the loose, short-name-only strategy (5)
	// can succeed.
	got := r.Resolve(idRef("Contoso.Core", assembly.Version{Major: 1}), 0)
	if got != def {
		t.Fatalf("Resolve loose hit = %v, want %v", got, def)
	}
}

func TestResolveUnknownReturnsNil(t *testing.T) {
	r := New(assembly.NewLoader(false), nil, nil)
	if got := r.Resolve(idRef("Unknown.Assembly", assembly.Version{Major: 1}), 0); got != nil {
		t.Fatalf("Resolve unknown = %v, want nil", got)
	}
}

func TestResolveIsMemoized(t *testing.T) {
	r := New(assembly.NewLoader(false), nil, nil)
	ref := idRef("Contoso.Core", assembly.Version{Major: 1})

	first := r.Resolve(ref, 0)
	if first != nil {
		t.Fatal("expected nil on first resolve of an unregistered assembly")
	}

	// Registering after the first (negative) resolve must not change the
	// memoized result, matching spec.md invariant 3.
	def := &assembly.Def{Id: assembly.Id{ShortName: "Contoso.Core", Version: assembly.Version{Major: 1}}, Path: "Contoso.Core.dll"}
	r.Register(def)

	second := r.Resolve(ref, 0)
	if second != nil {
		t.Fatalf("Resolve after registration = %v, want nil (negative cache)", second)
	}
}

func TestResolveDepthGuard(t *testing.T) {
	r := New(assembly.NewLoader(false), nil, nil)
	def := &assembly.Def{Id: assembly.Id{ShortName: "Contoso.Core", Version: assembly.Version{Major: 1}}, Path: "Contoso.Core.dll"}
	r.Register(def)

	if got := r.Resolve(idRef("Contoso.Core", assembly.Version{Major: 1}), r.MaxDepth+1); got != nil {
		t.Fatalf("Resolve past MaxDepth = %v, want nil", got)
	}
}

func TestIsRedirected(t *testing.T) {
	if !isRedirected("System", assembly.Version{Major: 2}) {
		t.Error("System 2.0.0.0 should be redirect-table covered")
	}
	if isRedirected("System", assembly.Version{Major: 5}) {
		t.Error("System 5.0.0.0 exceeds every listed redirect version")
	}
	if isRedirected("Contoso.Core", assembly.Version{Major: 1}) {
		t.Error("an assembly absent from the table should never be redirected")
	}
}

func TestMajorPrefixQuirk(t *testing.T) {
	cases := []struct {
		v    assembly.Version
		want string
	}{
		{assembly.Version{Major: 4, Minor: 1}, "3"},
		{assembly.Version{Major: 4, Minor: 2}, "3"},
		{assembly.Version{Major: 4, Minor: 0}, "4"},
		{assembly.Version{Major: 5}, "5"},
	}
	for _, c := range cases {
		if got := majorPrefix(c.v); got != c.want {
			t.Errorf("majorPrefix(%+v) = %q, want %q", c.v, got, c.want)
		}
	}
}
