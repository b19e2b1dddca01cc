// Package assembly implements the metadata loader (component A) and the
// framework classifier (component B): it opens a candidate PE file, detects
// whether it carries managed metadata, and exposes a read-only view of its
// assembly identity, outbound references, type/member tables, exported
// types, and InternalsVisibleTo friend list.
package assembly

import (
	"encoding/hex"
	"strings"
)

// Id is an assembly identity: short name, version, optional culture, and
// optional public-key token. Equality is full-tuple; ShortName comparison is
// case-insensitive (spec.md §3).
type Id struct {
	ShortName        string
	Version          Version
	Culture          string
	PublicKeyToken   []byte
	HasPublicKeyToken bool
}

// Equal reports full-tuple equality, case-insensitive on ShortName.
func (id Id) Equal(other Id) bool {
	if !strings.EqualFold(id.ShortName, other.ShortName) {
		return false
	}
	if id.Version != other.Version {
		return false
	}
	if !strings.EqualFold(id.Culture, other.Culture) {
		return false
	}
	if id.HasPublicKeyToken != other.HasPublicKeyToken {
		return false
	}
	return !id.HasPublicKeyToken || hex.EncodeToString(id.PublicKeyToken) == hex.EncodeToString(other.PublicKeyToken)
}

// FullName renders the .NET display-name form used in diagnostics, e.g.
// "mscorlib, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089".
func (id Id) FullName() string {
	culture := id.Culture
	if culture == "" {
		culture = "neutral"
	}
	token := "null"
	if id.HasPublicKeyToken {
		token = hex.EncodeToString(id.PublicKeyToken)
	}
	return id.ShortName + ", Version=" + id.Version.String() +
		", Culture=" + culture + ", PublicKeyToken=" + token
}

// TypeKey identifies a type within a specific assembly's type-existence
// cache: (assembly short name, namespace-qualified full name).
type TypeKey struct {
	AssemblyShortName string
	FullName          string
}

// Ref is an AssemblyId appearing inside some module's AssemblyRef table. It
// is immutable once the referencing assembly is loaded.
type Ref struct {
	Id
}
