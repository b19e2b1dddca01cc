package assembly

// Scope identifies what a coded-index column (ResolutionScope, MemberRefParent,
// Implementation, ...) actually points at, resolved down to a human-readable
// name so the checker and diagnostics never need to re-walk raw table rows.
type Scope struct {
	// Kind is one of "Assembly", "Module", "ModuleRef", "TypeRef", "TypeDef",
	// "MethodDef", "TypeSpec", "ExportedType", or "" if the column was
	// null/unresolved.
	Kind string
	// Name is the resolved short-name (for an Assembly/ModuleRef scope) or
	// full type name (for a TypeRef/TypeDef scope).
	Name string
	// AssemblyRefIndex is set (>0) when Kind == "Assembly": the 1-based row
	// index into Module.AssemblyRefs identifying exactly which reference
	// this scope resolves to.
	AssemblyRefIndex int
	// TypeRefIndex is set (>0) when Kind == "TypeRef": the 1-based row index
	// into Module.TypeRefs, letting a consumer hop from a MemberRef's Class
	// (which never lands directly on an AssemblyRef — see the
	// MemberRefParent coded-index tag table) on to that TypeRef's own Scope
	// to find the declaring assembly.
	TypeRefIndex int
}

// TypeRefView is a resolved TypeRef table row: a reference to a type
// declared in another module or assembly.
type TypeRefView struct {
	Name      string
	Namespace string
	Scope     Scope
}

// FullName is the namespace-qualified type name.
func (t TypeRefView) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// TypeDefView is a resolved TypeDef table row: a type declared in this
// assembly, plus the names of the fields and methods it owns (the
// contiguous Field/MethodDef table runs ECMA-335 II.22.37 associates with
// each TypeDef row), used by the checker's member-existence check.
type TypeDefView struct {
	Name      string
	Namespace string
	Flags     uint32
	Members   []string
}

// HasMember reports whether name is a declared field or method of t.
func (t TypeDefView) HasMember(name string) bool {
	for _, m := range t.Members {
		if m == name {
			return true
		}
	}
	return false
}

// FullName is the namespace-qualified type name.
func (t TypeDefView) FullName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// MemberRefView is a resolved MemberRef table row: a reference to a field
// or method declared in another type.
type MemberRefView struct {
	Name      string
	Signature []byte
	// Class is the declaring scope: a TypeDef, TypeRef, ModuleRef,
	// MethodDef, or TypeSpec.
	Class Scope
}

// ExportedTypeView is a resolved ExportedType table row: a type forwarded
// to another file or assembly of the same logical assembly.
type ExportedTypeView struct {
	Name           string
	Namespace      string
	Implementation Scope
}

// FullName is the namespace-qualified type name.
func (e ExportedTypeView) FullName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + "." + e.Name
}

// IVTFriend is one parsed InternalsVisibleToAttribute argument: the friend
// assembly's short name plus an optional public-key token, per the grammar
// note in spec.md §9 ("AssemblyName, PublicKey=...").
type IVTFriend struct {
	ShortName      string
	PublicKeyToken []byte
	HasPublicKey   bool
}

// Module is the read-only view over a loaded assembly's metadata that the
// resolver, checker, and IVT analyzer walk.
type Module struct {
	AssemblyRefs   []Ref
	TypeDefs       []TypeDefView
	TypeRefs       []TypeRefView
	MemberRefs     []MemberRefView
	ExportedTypes  []ExportedTypeView
	InternalsVisibleTo []IVTFriend
}
