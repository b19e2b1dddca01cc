// Package checker implements the reference checker (spec.md §4.D,
// component D): for each examined assembly, enumerate its references,
// resolve them, and record diagnostics and version mismatches.
package checker

import (
	"fmt"
	"strings"

	"github.com/binarycompat/bincompat/assembly"
	"github.com/binarycompat/bincompat/diagnostic"
	"github.com/binarycompat/bincompat/resolver"
)

// typeVisibilityMask is the low 3 bits of TypeAttributes (ECMA-335
// §II.23.1.15): value 0 (tdNotPublic) marks a non-public top-level type,
// the closest metadata-only proxy for "internal" the checker can read.
const typeVisibilityMask = 0x7
const typeNotPublic = 0x0

// VersionMismatch records a referencer demanding one version of an assembly
// while a different version was actually resolved (spec.md §3).
type VersionMismatch struct {
	Referencer *assembly.Def
	Expected   assembly.Ref
	Actual     *assembly.Def
	HandledBy  []string
}

// Line renders the mismatch the way it appears in the report when not
// suppressed by a config-file redirect.
func (m *VersionMismatch) Line() string {
	return fmt.Sprintf("Version mismatch: assembly '%s' references '%s' but resolved assembly is version %s",
		m.Referencer.Id.ShortName, m.Expected.FullName(), m.Actual.Id.Version)
}

// Suppressed reports whether a config-file redirect already covers this
// mismatch (spec.md §4.E).
func (m *VersionMismatch) Suppressed() bool { return len(m.HandledBy) > 0 }

// MemberResolvedFunc is notified for every type/member reference the
// checker successfully resolves to a concrete, non-public definition, so the
// IVT analyzer (component G) can run alongside without the checker
// depending on it directly.
type MemberResolvedFunc func(consumer, declarer *assembly.Def, member string)

// Checker implements spec.md §4.D's per-assembly reference walk.
type Checker struct {
	Resolver              *resolver.Resolver
	Diagnostics           *diagnostic.Set
	IgnoreVersionMismatch bool

	onMemberResolved     MemberResolvedFunc
	mismatches           []*VersionMismatch
	unresolvedAssemblies map[string]bool
	typeExistence        map[assembly.TypeKey]bool
}

// New creates a Checker writing into diags.
func New(res *resolver.Resolver, diags *diagnostic.Set) *Checker {
	return &Checker{
		Resolver:             res,
		Diagnostics:          diags,
		unresolvedAssemblies: make(map[string]bool),
		typeExistence:        make(map[assembly.TypeKey]bool),
	}
}

// OnMemberResolved installs fn as the callback for every successfully
// resolved, non-public type/member reference.
func (c *Checker) OnMemberResolved(fn MemberResolvedFunc) { c.onMemberResolved = fn }

// Mismatches returns every VersionMismatch recorded so far, in discovery
// order; the redirect processor (component E) mutates their HandledBy field
// in place.
func (c *Checker) Mismatches() []*VersionMismatch { return c.mismatches }

// Check runs spec.md §4.D steps 1-3 over def.
func (c *Checker) Check(def *assembly.Def) {
	resolved := make([]*assembly.Def, len(def.Module.AssemblyRefs))
	for i, ref := range def.Module.AssemblyRefs {
		if assembly.IsFrameworkName(ref.ShortName) {
			continue
		}
		target := c.Resolver.Resolve(ref, 0)
		if target == nil {
			c.Diagnostics.Add(fmt.Sprintf("Failed to resolve assembly reference to '%s'", ref.FullName()))
			c.unresolvedAssemblies[strings.ToLower(ref.ShortName)] = true
			continue
		}
		resolved[i] = target
		if assembly.IsFramework(target) {
			continue
		}
		c.checkAssemblyReference(def, target, ref, i)
	}
	c.checkMembers(def, resolved)
}

// checkAssemblyReference is spec.md §4.D step 2: record a version mismatch,
// then verify every TypeRef scoped to this AssemblyRef actually exists in
// the resolved assembly (following any facade forwarding first, per spec.md
// §8 scenario 6).
func (c *Checker) checkAssemblyReference(referencer, resolved *assembly.Def, ref assembly.Ref, refIndex int) {
	if ref.Version != resolved.Id.Version {
		c.mismatches = append(c.mismatches, &VersionMismatch{Referencer: referencer, Expected: ref, Actual: resolved})
	}
	for _, tr := range referencer.Module.TypeRefs {
		if tr.Scope.Kind != "Assembly" || tr.Scope.AssemblyRefIndex != refIndex+1 {
			continue
		}
		target, ok := c.resolveForwarded(resolved, tr.FullName(), 0)
		if !ok {
			c.Diagnostics.Add(fmt.Sprintf("Failed to resolve type reference '%s' in assembly '%s'", tr.FullName(), resolved.Id.ShortName))
			continue
		}
		if !c.typeExists(target, tr.FullName()) {
			c.Diagnostics.Add(fmt.Sprintf("Failed to resolve type reference '%s' in assembly '%s'", tr.FullName(), target.Id.ShortName))
		}
	}
}

// resolveForwarded follows a facade's type-forwarding chain (spec.md §4.B
// is_facade, §8 scenario 6): if declarer is a facade, it looks up fullName
// among declarer's ExportedTypes and resolves the assembly its Implementation
// scope names, recursing in case of a multi-hop forward. A facade that does
// not forward fullName at all is reported as unresolved. A non-facade
// declarer is returned as-is — its own TypeDefs still need checking by the
// caller.
func (c *Checker) resolveForwarded(declarer *assembly.Def, fullName string, depth int) (*assembly.Def, bool) {
	if !assembly.IsFacade(declarer) {
		return declarer, true
	}
	if depth > c.Resolver.MaxDepth {
		return nil, false
	}
	for _, et := range declarer.Module.ExportedTypes {
		if et.FullName() != fullName {
			continue
		}
		if et.Implementation.Kind != "Assembly" || et.Implementation.AssemblyRefIndex < 1 ||
			et.Implementation.AssemblyRefIndex > len(declarer.Module.AssemblyRefs) {
			return nil, false
		}
		ref := declarer.Module.AssemblyRefs[et.Implementation.AssemblyRefIndex-1]
		forwarded := c.Resolver.Resolve(ref, depth+1)
		if forwarded == nil {
			return nil, false
		}
		return c.resolveForwarded(forwarded, fullName, depth+1)
	}
	return nil, false
}

func (c *Checker) typeExists(def *assembly.Def, fullName string) bool {
	key := assembly.TypeKey{AssemblyShortName: def.Id.ShortName, FullName: fullName}
	if v, ok := c.typeExistence[key]; ok {
		return v
	}
	exists := c.findType(def, fullName) != nil
	c.typeExistence[key] = exists
	return exists
}

func (c *Checker) findType(def *assembly.Def, fullName string) *assembly.TypeDefView {
	for i, td := range def.Module.TypeDefs {
		if td.FullName() == fullName {
			return &def.Module.TypeDefs[i]
		}
	}
	return nil
}

// checkMembers is spec.md §4.D step 3: walk every TypeRef and MemberRef,
// resolve its declaring assembly (from the scopes already resolved in step
// 1) and declaring type, following facade forwarding, and verify the
// referenced type or member actually exists there.
func (c *Checker) checkMembers(def *assembly.Def, resolvedRefs []*assembly.Def) {
	declarerOf := func(scope assembly.Scope) *assembly.Def {
		if scope.Kind != "Assembly" || scope.AssemblyRefIndex < 1 || scope.AssemblyRefIndex > len(resolvedRefs) {
			return nil
		}
		// spec.md §4.D step 3: a scope naming an assembly already reported
		// unresolved in step 1 is skipped here too, rather than re-reported
		// once per type/member reference into it.
		if c.unresolvedAssemblies[strings.ToLower(scope.Name)] {
			return nil
		}
		return resolvedRefs[scope.AssemblyRefIndex-1]
	}

	for _, tr := range def.Module.TypeRefs {
		if tr.Scope.Kind != "Assembly" {
			// Only assembly-scoped references are checked; nested-type
			// (TypeRef), module-local (Module/ModuleRef) and unresolved
			// scopes are skipped without a diagnostic.
			continue
		}
		declarer := declarerOf(tr.Scope)
		if declarer == nil || assembly.IsFramework(declarer) {
			continue
		}
		target, ok := c.resolveForwarded(declarer, tr.FullName(), 0)
		if !ok {
			c.Diagnostics.Add(fmt.Sprintf("Failed to resolve type reference '%s' in assembly '%s'", tr.FullName(), declarer.Id.ShortName))
			continue
		}
		td := c.findType(target, tr.FullName())
		if td == nil {
			c.Diagnostics.Add(fmt.Sprintf("Failed to resolve type reference '%s' in assembly '%s'", tr.FullName(), target.Id.ShortName))
			continue
		}
		if c.onMemberResolved != nil && td.Flags&typeVisibilityMask == typeNotPublic {
			c.onMemberResolved(def, target, td.FullName())
		}
	}

	for _, mr := range def.Module.MemberRefs {
		// MemberRefParent (dotnet_helper.go's idxMemberRefParent) can only
		// decode to TypeDef/TypeRef/ModuleRef/MethodDef/TypeSpec — never
		// directly to an AssemblyRef — so the declaring assembly of a
		// MemberRef is always reached by a second hop through its TypeRef's
		// own (ResolutionScope-decoded) Scope.
		if mr.Class.Kind != "TypeRef" {
			continue
		}
		if mr.Class.TypeRefIndex < 1 || mr.Class.TypeRefIndex > len(def.Module.TypeRefs) {
			continue
		}
		tr := def.Module.TypeRefs[mr.Class.TypeRefIndex-1]
		declarer := declarerOf(tr.Scope)
		if declarer == nil || assembly.IsFramework(declarer) {
			continue
		}
		target, ok := c.resolveForwarded(declarer, tr.FullName(), 0)
		if !ok {
			c.Diagnostics.Add(fmt.Sprintf("Failed to resolve member reference '%s' in assembly '%s'", mr.Name, declarer.Id.ShortName))
			continue
		}
		if !c.memberExistsOnType(target, tr.FullName(), mr.Name) {
			c.Diagnostics.Add(fmt.Sprintf("Failed to resolve member reference '%s' in assembly '%s'", mr.Name, target.Id.ShortName))
			continue
		}
		if c.onMemberResolved != nil {
			c.onMemberResolved(def, target, mr.Name)
		}
	}
}

// memberExistsOnType reports whether name is a declared field or method of
// the specific type typeFullName within def — not merely any type in def,
// so a member reference cannot be satisfied by an unrelated same-named
// member on a different type.
func (c *Checker) memberExistsOnType(def *assembly.Def, typeFullName, name string) bool {
	td := c.findType(def, typeFullName)
	if td == nil {
		return false
	}
	return td.HasMember(name)
}
