package assembly

import (
	"strings"
	"sync"

	pe "github.com/binarycompat/bincompat"
)

// fixedFrameworkNames is the short-name set spec.md §4.B calls out by name,
// in addition to the System.* prefix rule and the attribute-based checks.
var fixedFrameworkNames = map[string]bool{
	"mscorlib":                true,
	"netstandard":             true,
	"System":                  true,
	"Accessibility":           true,
	"Microsoft.CSharp":        true,
	"Microsoft.VisualBasic":   true,
	"PresentationCore":        true,
	"PresentationFramework":   true,
	"ReachFramework":          true,
	"WindowsBase":             true,
	"WindowsFormsIntegration": true,
	"WindowsCE.Forms":         true,
	"Microsoft.VisualC":       true,
	"UIAutomationClient":      true,
	"UIAutomationClientsideProviders": true,
	"UIAutomationCore":                true,
	"UIAutomationProvider":            true,
	"UIAutomationTypes":               true,
}

var classifyMu sync.Mutex
var frameworkMemo = make(map[string]bool)

// IsFramework reports whether def is part of the .NET/Windows framework
// redistributable set, per spec.md §4.B. The result is memoized by file path,
// matching the spec's "memoized by path" requirement.
func IsFramework(def *Def) bool {
	classifyMu.Lock()
	if v, ok := frameworkMemo[def.Path]; ok {
		classifyMu.Unlock()
		return v
	}
	classifyMu.Unlock()

	v := computeIsFramework(def)

	classifyMu.Lock()
	frameworkMemo[def.Path] = v
	classifyMu.Unlock()
	return v
}

// IsFrameworkName reports whether shortName is a recognized framework
// assembly by name alone (the fixed set plus the System.* prefix rule),
// without requiring a loaded Def. The resolver uses this to decide, before
// ever locating a file, whether strategy 3 (framework search) applies to a
// reference (spec.md §4.C "is_framework_name(ref.short-name)").
func IsFrameworkName(shortName string) bool {
	return fixedFrameworkNames[shortName] || strings.HasPrefix(shortName, "System.")
}

func computeIsFramework(def *Def) bool {
	if IsFrameworkName(def.Id.ShortName) {
		return true
	}
	product, metadataKey := frameworkAttributeArgs(def)
	if product == "Microsoft® .NET Framework" || product == "Microsoft® .NET" {
		return true
	}
	return metadataKey == ".NETFrameworkAssembly"
}

// frameworkAttributeArgs reads the AssemblyProductAttribute string argument
// and the first AssemblyMetadataAttribute key argument, when present. Custom
// attributes are only reachable through the loader's decoded Module, so this
// re-scans the CustomAttribute table the same way loader.go's IVT decoder
// does.
func frameworkAttributeArgs(def *Def) (product, metadataKey string) {
	if def.Module == nil {
		return "", ""
	}
	f, err := pe.New(def.Path, &pe.Options{})
	if err != nil {
		return "", ""
	}
	defer f.Close()
	if err := f.Parse(); err != nil {
		return "", ""
	}
	t, ok := f.CLR.MetadataTables[pe.CustomAttribute]
	if !ok {
		return "", ""
	}
	rows, ok := t.Content.([]pe.CustomAttributeTableRow)
	if !ok {
		return "", ""
	}
	for _, row := range rows {
		typeName := resolveAttributeTypeName(def.Module, row)
		blob, _ := f.BlobAtIndex(row.Value)
		switch {
		case strings.HasSuffix(typeName, "AssemblyProductAttribute") && product == "":
			if args, ok := decodeAttributeStringArgs(blob, 1); ok {
				product = args[0]
			}
		case strings.HasSuffix(typeName, "AssemblyMetadataAttribute") && metadataKey == "":
			if args, ok := decodeAttributeStringArgs(blob, 2); ok {
				metadataKey = args[0]
			}
		}
	}
	return product, metadataKey
}

// IsFacade reports whether def is a type-forwarding facade: exactly one
// concrete type (the implicit `<Module>` pseudo-type) and at least one
// exported/forwarded type, per spec.md §4.B.
func IsFacade(def *Def) bool {
	if def.Module == nil {
		return false
	}
	if len(def.Module.TypeDefs) != 1 || def.Module.TypeDefs[0].Name != "<Module>" {
		return false
	}
	return len(def.Module.ExportedTypes) > 0
}
