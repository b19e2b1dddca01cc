package assembly

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	pe "github.com/binarycompat/bincompat"
	"github.com/binarycompat/bincompat/internal/errtag"
)

// Def is a loaded assembly: its identity, the path it was loaded from, its
// metadata view, and an optional Authenticode signature.
type Def struct {
	Id        Id
	Path      string
	Module    *Module
	Signature *Signature
	// TargetFramework is the TargetFrameworkAttribute argument (e.g.
	// ".NETFramework,Version=v4.7.2"), when the assembly carries one. Used
	// only for the examined-assemblies report (spec.md §4.A side effect).
	TargetFramework string
}

// ExaminedEntry records one assembly the Loader actually opened and decoded,
// for the "examined assemblies" side report (spec.md §4.A).
type ExaminedEntry struct {
	Path            string
	Version         Version
	TargetFramework string
}

// Loader loads assemblies from disk and memoizes successful loads by path, so
// the same file is never decoded twice during a single run (spec.md §4.A).
type Loader struct {
	mu       sync.Mutex
	byPath   map[string]*Def
	caseFold bool
	examined map[string]ExaminedEntry
}

// NewLoader creates a Loader. caseInsensitiveFS should be true when running
// against a filesystem that treats paths case-insensitively (Windows, and
// HFS+/APFS in their default mode): memoization keys fold case accordingly.
func NewLoader(caseInsensitiveFS bool) *Loader {
	return &Loader{
		byPath:   make(map[string]*Def),
		caseFold: caseInsensitiveFS,
		examined: make(map[string]ExaminedEntry),
	}
}

func (l *Loader) key(path string) string {
	k := filepath.Clean(path)
	if l.caseFold {
		k = strings.ToLower(k)
	}
	return k
}

// Load opens path and decodes it into a Def. It returns (nil, nil) — not an
// error — when the file is absent, unreadable, or not a managed assembly;
// those are routine "not applicable" outcomes, not failures. It returns a
// errtag.KindLoadFailure error only when the file is a PE/CLR image whose
// metadata could not be decoded, which the caller should turn into a
// diagnostic rather than abort the run.
func (l *Loader) Load(path string) (*Def, error) {
	key := l.key(path)

	l.mu.Lock()
	if d, ok := l.byPath[key]; ok {
		l.mu.Unlock()
		return d, nil
	}
	l.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	f, err := pe.New(path, &pe.Options{})
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	if err := f.Parse(); err != nil {
		if !f.HasCLR {
			return nil, nil
		}
		return nil, errtag.Wrap(errtag.KindLoadFailure, err, "parse "+path)
	}

	if !f.HasCLR {
		return nil, nil
	}

	def, err := buildDef(f, path)
	if err != nil {
		return nil, errtag.Wrap(errtag.KindLoadFailure, err, "decode metadata of "+path)
	}

	l.mu.Lock()
	l.byPath[key] = def
	l.mu.Unlock()

	// spec.md §4.A: the examined-assemblies report lists only non-framework
	// assemblies. IsFramework may re-open the file, so it must run outside
	// the lock above.
	if !IsFramework(def) {
		l.mu.Lock()
		if _, ok := l.examined[key]; !ok {
			l.examined[key] = ExaminedEntry{Path: path, Version: def.Id.Version, TargetFramework: def.TargetFramework}
		}
		l.mu.Unlock()
	}

	return def, nil
}

// Examined returns every assembly actually opened and decoded so far, sorted
// by path.
func (l *Loader) Examined() []ExaminedEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ExaminedEntry, 0, len(l.examined))
	for _, e := range l.examined {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func buildDef(f *pe.File, path string) (*Def, error) {
	mod := &Module{}
	tables := f.CLR.MetadataTables

	id := Id{ShortName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	if t, ok := tables[pe.Assembly]; ok {
		if rows, ok := t.Content.([]pe.AssemblyTableRow); ok && len(rows) > 0 {
			row := rows[0]
			if name, _ := f.StringAtIndex(row.Name); name != "" {
				id.ShortName = name
			}
			id.Version = Version{row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber}
			id.Culture, _ = f.StringAtIndex(row.Culture)
			if key, _ := f.BlobAtIndex(row.PublicKey); len(key) > 0 {
				id.PublicKeyToken = publicKeyOrTokenToToken(key)
				id.HasPublicKeyToken = true
			}
		}
	}

	if t, ok := tables[pe.AssemblyRef]; ok {
		if rows, ok := t.Content.([]pe.AssemblyRefTableRow); ok {
			for _, row := range rows {
				name, _ := f.StringAtIndex(row.Name)
				culture, _ := f.StringAtIndex(row.Culture)
				ref := Ref{Id: Id{
					ShortName: name,
					Version:   Version{row.MajorVersion, row.MinorVersion, row.BuildNumber, row.RevisionNumber},
					Culture:   culture,
				}}
				if tok, _ := f.BlobAtIndex(row.PublicKeyOrToken); len(tok) > 0 {
					ref.PublicKeyToken = publicKeyOrTokenToToken(tok)
					ref.HasPublicKeyToken = true
				}
				mod.AssemblyRefs = append(mod.AssemblyRefs, ref)
			}
		}
	}

	if t, ok := tables[pe.TypeDef]; ok {
		if rows, ok := t.Content.([]pe.TypeDefTableRow); ok {
			var fieldNames, methodNames []string
			if ft, ok := tables[pe.Field]; ok {
				if frows, ok := ft.Content.([]pe.FieldTableRow); ok {
					fieldNames = make([]string, len(frows))
					for i, fr := range frows {
						fieldNames[i], _ = f.StringAtIndex(fr.Name)
					}
				}
			}
			if mt, ok := tables[pe.MethodDef]; ok {
				if mrows, ok := mt.Content.([]pe.MethodDefTableRow); ok {
					methodNames = make([]string, len(mrows))
					for i, mr := range mrows {
						methodNames[i], _ = f.StringAtIndex(mr.Name)
					}
				}
			}
			for i, row := range rows {
				name, _ := f.StringAtIndex(row.TypeName)
				ns, _ := f.StringAtIndex(row.TypeNamespace)

				// Each TypeDef row owns the contiguous run of Field/MethodDef
				// rows from its own FieldList/MethodList up to (but not
				// including) the next row's, or the end of the table for the
				// last TypeDef (ECMA-335 II.22.37).
				fieldEnd, methodEnd := uint32(len(fieldNames))+1, uint32(len(methodNames))+1
				if i+1 < len(rows) {
					fieldEnd, methodEnd = rows[i+1].FieldList, rows[i+1].MethodList
				}
				var members []string
				members = append(members, sliceNames(fieldNames, row.FieldList, fieldEnd)...)
				members = append(members, sliceNames(methodNames, row.MethodList, methodEnd)...)

				mod.TypeDefs = append(mod.TypeDefs, TypeDefView{Name: name, Namespace: ns, Flags: row.Flags, Members: members})
			}
		}
	}

	if t, ok := tables[pe.TypeRef]; ok {
		if rows, ok := t.Content.([]pe.TypeRefTableRow); ok {
			for _, row := range rows {
				name, _ := f.StringAtIndex(row.TypeName)
				ns, _ := f.StringAtIndex(row.TypeNamespace)
				scope := resolveScope(f, mod, "ResolutionScope", row.ResolutionScope)
				mod.TypeRefs = append(mod.TypeRefs, TypeRefView{Name: name, Namespace: ns, Scope: scope})
			}
		}
	}

	if t, ok := tables[pe.MemberRef]; ok {
		if rows, ok := t.Content.([]pe.MemberRefTableRow); ok {
			for _, row := range rows {
				name, _ := f.StringAtIndex(row.Name)
				sig, _ := f.BlobAtIndex(row.Signature)
				scope := resolveScope(f, mod, "MemberRefParent", row.Class)
				mod.MemberRefs = append(mod.MemberRefs, MemberRefView{Name: name, Signature: sig, Class: scope})
			}
		}
	}

	if t, ok := tables[pe.ExportedType]; ok {
		if rows, ok := t.Content.([]pe.ExportedTypeTableRow); ok {
			for _, row := range rows {
				name, _ := f.StringAtIndex(row.TypeName)
				ns, _ := f.StringAtIndex(row.TypeNamespace)
				impl := resolveScope(f, mod, "Implementation", row.Implementation)
				mod.ExportedTypes = append(mod.ExportedTypes, ExportedTypeView{Name: name, Namespace: ns, Implementation: impl})
			}
		}
	}

	mod.InternalsVisibleTo = decodeInternalsVisibleTo(f, mod, tables)

	def := &Def{Id: id, Path: path, Module: mod, TargetFramework: decodeTargetFramework(f, mod, tables)}
	if f.HasCertificate {
		def.Signature = &Signature{
			Issuer:             f.Certificates.Info.Issuer,
			Subject:            f.Certificates.Info.Subject,
			SignatureAlgorithm: f.Certificates.Info.SignatureAlgorithm.String(),
			Verified:           f.Certificates.Verified,
		}
	}
	return def, nil
}

// resolveScope decodes a coded-index column into a human-readable Scope,
// looking up the target row in whichever table it falls in. Rows that are
// themselves coded-index targets (AssemblyRef, TypeDef, TypeRef) must already
// be decoded into mod by the time this is called; buildDef's table order
// guarantees that for every scope kind it uses.
func resolveScope(f *pe.File, mod *Module, kind string, raw uint32) Scope {
	if raw == 0 {
		return Scope{}
	}
	table, row := pe.DecodeCodedIndex(kind, raw)
	if table < 0 || row == 0 {
		return Scope{}
	}
	idx := int(row) - 1

	switch table {
	case pe.Module:
		return Scope{Kind: "Module"}
	case pe.ModuleRef:
		if t, ok := f.CLR.MetadataTables[pe.ModuleRef]; ok {
			if rows, ok := t.Content.([]pe.ModuleRefTableRow); ok && idx < len(rows) {
				name, _ := f.StringAtIndex(rows[idx].Name)
				return Scope{Kind: "ModuleRef", Name: name}
			}
		}
	case pe.AssemblyRef:
		if idx < len(mod.AssemblyRefs) {
			return Scope{Kind: "Assembly", Name: mod.AssemblyRefs[idx].ShortName, AssemblyRefIndex: idx + 1}
		}
	case pe.TypeRef:
		if idx < len(mod.TypeRefs) {
			return Scope{Kind: "TypeRef", Name: mod.TypeRefs[idx].FullName(), TypeRefIndex: idx + 1}
		}
	case pe.TypeDef:
		if idx < len(mod.TypeDefs) {
			return Scope{Kind: "TypeDef", Name: mod.TypeDefs[idx].FullName()}
		}
	case pe.TypeSpec:
		return Scope{Kind: "TypeSpec"}
	case pe.MethodDef:
		return Scope{Kind: "MethodDef"}
	case pe.ExportedType:
		return Scope{Kind: "ExportedType"}
	}
	return Scope{}
}

// decodeInternalsVisibleTo scans the CustomAttribute table for
// InternalsVisibleToAttribute rows and parses their friend-assembly argument.
func decodeInternalsVisibleTo(f *pe.File, mod *Module, tables map[int]*pe.MetadataTable) []IVTFriend {
	t, ok := tables[pe.CustomAttribute]
	if !ok {
		return nil
	}
	rows, ok := t.Content.([]pe.CustomAttributeTableRow)
	if !ok {
		return nil
	}
	var friends []IVTFriend
	for _, row := range rows {
		typeName := resolveAttributeTypeName(mod, row)
		if !strings.HasSuffix(typeName, "InternalsVisibleToAttribute") {
			continue
		}
		blob, _ := f.BlobAtIndex(row.Value)
		args, ok := decodeAttributeStringArgs(blob, 1)
		if !ok || args[0] == "" {
			continue
		}
		friends = append(friends, parseIVTArgument(args[0]))
	}
	return friends
}

// decodeTargetFramework reads the single string argument of a
// TargetFrameworkAttribute, e.g. ".NETFramework,Version=v4.7.2".
func decodeTargetFramework(f *pe.File, mod *Module, tables map[int]*pe.MetadataTable) string {
	t, ok := tables[pe.CustomAttribute]
	if !ok {
		return ""
	}
	rows, ok := t.Content.([]pe.CustomAttributeTableRow)
	if !ok {
		return ""
	}
	for _, row := range rows {
		if !strings.HasSuffix(resolveAttributeTypeName(mod, row), "TargetFrameworkAttribute") {
			continue
		}
		blob, _ := f.BlobAtIndex(row.Value)
		if args, ok := decodeAttributeStringArgs(blob, 1); ok {
			return args[0]
		}
	}
	return ""
}

// parseIVTArgument parses an InternalsVisibleToAttribute constructor
// argument: "FriendAssemblyName" or "FriendAssemblyName, PublicKey=<hex>".
// spec.md §9 leaves the exact grammar under-specified; short-name match is
// mandatory, public-key match only applies when the argument carries one.
func parseIVTArgument(arg string) IVTFriend {
	comma := strings.Index(arg, ",")
	if comma < 0 {
		return IVTFriend{ShortName: strings.TrimSpace(arg)}
	}
	name := strings.TrimSpace(arg[:comma])
	const marker = "PublicKey="
	if p := strings.Index(arg[comma+1:], marker); p >= 0 {
		rest := arg[comma+1+p+len(marker):]
		if key, err := hex.DecodeString(strings.TrimSpace(rest)); err == nil && len(key) > 0 {
			return IVTFriend{ShortName: name, PublicKeyToken: publicKeyOrTokenToToken(key), HasPublicKey: true}
		}
	}
	return IVTFriend{ShortName: name}
}

// sliceNames returns names[start-1 : end-1], the 1-based ECMA-335 row range
// [start, end), clamped to bounds.
func sliceNames(names []string, start, end uint32) []string {
	if start == 0 || int(start) > len(names) {
		return nil
	}
	lo := int(start) - 1
	hi := int(end) - 1
	if hi > len(names) {
		hi = len(names)
	}
	if hi <= lo {
		return nil
	}
	return names[lo:hi]
}

// publicKeyOrTokenToToken normalizes an AssemblyRef/Assembly public-key blob
// to an 8-byte token: returned as-is when already token-sized, otherwise
// derived from the low 8 bytes of its SHA-1 hash in reverse byte order, per
// the strong-name token algorithm (ECMA-335 II.21 and the CLR's public
// strong-name token derivation).
func publicKeyOrTokenToToken(blob []byte) []byte {
	if len(blob) == 8 {
		return blob
	}
	sum := sha1.Sum(blob)
	token := make([]byte, 8)
	for i := range token {
		token[i] = sum[len(sum)-1-i]
	}
	return token
}
