package checker

import (
	"testing"

	"github.com/binarycompat/bincompat/assembly"
	"github.com/binarycompat/bincompat/diagnostic"
	"github.com/binarycompat/bincompat/resolver"
)

func newChecker() (*Checker, *resolver.Resolver, *diagnostic.Set) {
	loader := assembly.NewLoader(false)
	res := resolver.New(loader, nil, nil)
	diags := diagnostic.NewSet()
	return New(res, diags), res, diags
}

// Scenario 1 (spec.md §8): clean set, no diagnostics.
func TestCheckCleanSet(t *testing.T) {
	c, res, diags := newChecker()

	b := &assembly.Def{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}, Path: "B.dll",
		Module: &assembly.Module{}}
	res.Register(b)

	a := &assembly.Def{Id: assembly.Id{ShortName: "A", Version: assembly.Version{Major: 1}}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}}},
	}}

	c.Check(a)

	if diags.Len() != 0 {
		t.Errorf("expected no diagnostics, got %v", diags.Sorted())
	}
	if len(c.Mismatches()) != 0 {
		t.Errorf("expected no version mismatches, got %v", c.Mismatches())
	}
}

// Scenario 2: a missing assembly reference.
func TestCheckMissingAssemblyReference(t *testing.T) {
	c, _, diags := newChecker()

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "C", Version: assembly.Version{Major: 2}}}},
	}}

	c.Check(a)

	want := "Failed to resolve assembly reference to 'C, Version=2.0.0.0, Culture=neutral, PublicKeyToken=null'"
	found := false
	for _, line := range diags.Sorted() {
		if line == want {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want to contain %q", diags.Sorted(), want)
	}
}

// Scenario 3: version mismatch without a redirect.
func TestCheckVersionMismatch(t *testing.T) {
	c, res, _ := newChecker()

	b := &assembly.Def{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 2}}, Path: "B.dll",
		Module: &assembly.Module{}}
	res.Register(b)

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}}},
	}}

	c.Check(a)

	mismatches := c.Mismatches()
	if len(mismatches) != 1 {
		t.Fatalf("Mismatches() = %v, want exactly one", mismatches)
	}
	if mismatches[0].Suppressed() {
		t.Error("a fresh mismatch should not be suppressed")
	}
}

// Scenario 5: a missing member reference. A MemberRef's Class column never
// decodes directly to an AssemblyRef (idxMemberRefParent has no AssemblyRef
// entry) — it always lands on a TypeRef, whose own Scope names the
// declaring assembly, so the fixture must shape Class as the loader would.
func TestCheckMissingMemberReference(t *testing.T) {
	c, res, diags := newChecker()

	b := &assembly.Def{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}, Path: "B.dll", Module: &assembly.Module{
		TypeDefs: []assembly.TypeDefView{{Name: "Widget", Namespace: "Contoso", Members: []string{"M2"}}},
	}}
	res.Register(b)

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}}},
		TypeRefs: []assembly.TypeRefView{
			{Name: "Widget", Namespace: "Contoso", Scope: assembly.Scope{Kind: "Assembly", Name: "B", AssemblyRefIndex: 1}},
		},
		MemberRefs: []assembly.MemberRefView{
			{Name: "M1", Class: assembly.Scope{Kind: "TypeRef", TypeRefIndex: 1}},
		},
	}}

	c.Check(a)

	want := "Failed to resolve member reference 'M1' in assembly 'B'"
	found := false
	for _, line := range diags.Sorted() {
		if line == want {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want to contain %q", diags.Sorted(), want)
	}
}

// A member reference whose declaring type is actually present resolves
// cleanly and notifies the IVT hook, exercising the same TypeRef-mediated
// MemberRef.Class shape as the missing-member case above.
func TestCheckResolvesMemberReference(t *testing.T) {
	c, res, diags := newChecker()

	b := &assembly.Def{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}, Path: "B.dll", Module: &assembly.Module{
		TypeDefs: []assembly.TypeDefView{{Name: "Widget", Namespace: "Contoso", Members: []string{"M1"}}},
	}}
	res.Register(b)

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}}},
		TypeRefs: []assembly.TypeRefView{
			{Name: "Widget", Namespace: "Contoso", Scope: assembly.Scope{Kind: "Assembly", Name: "B", AssemblyRefIndex: 1}},
		},
		MemberRefs: []assembly.MemberRefView{
			{Name: "M1", Class: assembly.Scope{Kind: "TypeRef", TypeRefIndex: 1}},
		},
	}}

	var notified bool
	c.OnMemberResolved(func(consumer, declarer *assembly.Def, member string) {
		notified = true
		if consumer != a || declarer != b || member != "M1" {
			t.Errorf("OnMemberResolved callback args = %v %v %q", consumer, declarer, member)
		}
	})

	c.Check(a)

	if diags.Len() != 0 {
		t.Errorf("expected no diagnostics, got %v", diags.Sorted())
	}
	if !notified {
		t.Error("expected OnMemberResolved to fire for a resolved member reference")
	}
}

// Scenario 6 (spec.md §8, GLOSSARY "Facade assembly"): A references type T
// scoped to facade F, which forwards T to real assembly R. Expected result:
// no diagnostic, and R (not F) receives the resolved-declarer credit.
func TestCheckResolvesTypeThroughFacade(t *testing.T) {
	c, res, diags := newChecker()

	r := &assembly.Def{Id: assembly.Id{ShortName: "R", Version: assembly.Version{Major: 1}}, Path: "R.dll", Module: &assembly.Module{
		TypeDefs: []assembly.TypeDefView{{Name: "Widget", Namespace: "Contoso", Flags: typeNotPublic, Members: []string{"M1"}}},
	}}
	res.Register(r)

	f := &assembly.Def{Id: assembly.Id{ShortName: "F", Version: assembly.Version{Major: 1}}, Path: "F.dll", Module: &assembly.Module{
		// A facade's TypeDefs hold only the <Module> pseudo-type (assembly.IsFacade).
		TypeDefs: []assembly.TypeDefView{{Name: "<Module>"}},
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "R", Version: assembly.Version{Major: 1}}}},
		ExportedTypes: []assembly.ExportedTypeView{
			{Name: "Widget", Namespace: "Contoso", Implementation: assembly.Scope{Kind: "Assembly", AssemblyRefIndex: 1}},
		},
	}}
	res.Register(f)

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "F", Version: assembly.Version{Major: 1}}}},
		TypeRefs: []assembly.TypeRefView{
			{Name: "Widget", Namespace: "Contoso", Scope: assembly.Scope{Kind: "Assembly", Name: "F", AssemblyRefIndex: 1}},
		},
		MemberRefs: []assembly.MemberRefView{
			{Name: "M1", Class: assembly.Scope{Kind: "TypeRef", TypeRefIndex: 1}},
		},
	}}

	var declarer *assembly.Def
	c.OnMemberResolved(func(consumer, d *assembly.Def, member string) {
		declarer = d
	})

	c.Check(a)

	if diags.Len() != 0 {
		t.Errorf("expected no diagnostics for a resolved facade forward, got %v", diags.Sorted())
	}
	if declarer != r {
		t.Errorf("OnMemberResolved declarer = %v, want the forwarded assembly R", declarer)
	}
}

// A facade that does not forward the referenced type at all is reported as
// unresolved rather than silently accepted.
func TestCheckFacadeMissingForward(t *testing.T) {
	c, res, diags := newChecker()

	f := &assembly.Def{Id: assembly.Id{ShortName: "F", Version: assembly.Version{Major: 1}}, Path: "F.dll", Module: &assembly.Module{
		TypeDefs: []assembly.TypeDefView{{Name: "<Module>"}},
	}}
	res.Register(f)

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "F", Version: assembly.Version{Major: 1}}}},
		TypeRefs: []assembly.TypeRefView{
			{Name: "Widget", Namespace: "Contoso", Scope: assembly.Scope{Kind: "Assembly", Name: "F", AssemblyRefIndex: 1}},
		},
	}}

	c.Check(a)

	want := "Failed to resolve type reference 'Contoso.Widget' in assembly 'F'"
	found := false
	for _, line := range diags.Sorted() {
		if line == want {
			found = true
		}
	}
	if !found {
		t.Errorf("diagnostics = %v, want to contain %q", diags.Sorted(), want)
	}
}

// A resolved reference to a non-public type notifies the IVT hook with the
// type's full name.
func TestCheckNotifiesMemberResolved(t *testing.T) {
	c, res, _ := newChecker()

	b := &assembly.Def{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}, Path: "B.dll", Module: &assembly.Module{
		TypeDefs: []assembly.TypeDefView{{Name: "Internal", Namespace: "Contoso", Flags: 0, Members: []string{"M1"}}},
	}}
	res.Register(b)

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "B", Version: assembly.Version{Major: 1}}}},
		TypeRefs: []assembly.TypeRefView{
			{Name: "Internal", Namespace: "Contoso", Scope: assembly.Scope{Kind: "Assembly", Name: "B", AssemblyRefIndex: 1}},
		},
	}}

	var notified bool
	c.OnMemberResolved(func(consumer, declarer *assembly.Def, member string) {
		notified = true
		if consumer != a || declarer != b || member != "Contoso.Internal" {
			t.Errorf("OnMemberResolved callback args = %v %v %q", consumer, declarer, member)
		}
	})

	c.Check(a)

	if !notified {
		t.Error("expected OnMemberResolved to fire for a resolved non-public type reference")
	}
}

// A reference whose short-name is in the ignore set (framework assemblies)
// is skipped entirely.
func TestCheckSkipsFrameworkReferences(t *testing.T) {
	c, _, diags := newChecker()

	a := &assembly.Def{Id: assembly.Id{ShortName: "A"}, Path: "A.dll", Module: &assembly.Module{
		AssemblyRefs: []assembly.Ref{{Id: assembly.Id{ShortName: "mscorlib", Version: assembly.Version{Major: 4}}}},
	}}

	c.Check(a)

	if diags.Len() != 0 {
		t.Errorf("expected framework references to produce no diagnostics, got %v", diags.Sorted())
	}
}
