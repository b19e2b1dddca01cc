package resolver

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/binarycompat/bincompat/assembly"
)

// FrameworkRedirectTable models spec.md §9's "repeated keys in source"
// quirk: the original dictionary initializer assigns the same short name
// multiple times, so the real intent is {short-name -> set of accepted
// versions}, not a single-version map. A reference whose version is
// less-than-or-equal to any listed version is treated as GAC-resolvable
// legacy Visual Basic, WindowsCE.Forms, or pre-unification System.* content.
var FrameworkRedirectTable = map[string][]assembly.Version{
	"Microsoft.VisualBasic": {{Major: 7}, {Major: 8}, {Major: 10}},
	"WindowsCE.Forms":       {{Major: 3, Minor: 5}},
	"System":                {{Major: 1, Minor: 0, Build: 5000}, {Major: 2}, {Major: 4}},
	"System.Core":           {{Major: 3, Minor: 5}, {Major: 4}},
	"System.Data":           {{Major: 2}, {Major: 4}},
	"System.Xml":            {{Major: 2}, {Major: 4}},
}

func isRedirected(shortName string, version assembly.Version) bool {
	for _, v := range FrameworkRedirectTable[shortName] {
		if version.LessEqual(v) {
			return true
		}
	}
	return false
}

// desktopV4Ceiling is the highest desktop-framework v4 version the GAC
// search applies to, per spec.md §4.C strategy 3.
var desktopV4Ceiling = assembly.Version{Major: 4, Minor: 0, Build: 10, Revision: 0}

// gacSubdirs are the desktop-framework GAC install locations under
// %WINDIR%\Microsoft.NET\assembly.
var gacSubdirs = []string{"GAC_MSIL", "GAC_32", "GAC_64"}

// resolveFramework implements spec.md §4.C strategy 3.
func (r *Resolver) resolveFramework(ref assembly.Ref) *assembly.Def {
	if ref.ShortName == "mscorlib" {
		if def := r.searchGAC(ref); def != nil {
			return def
		}
	}
	onWindowsLegacy := runtime.GOOS == "windows" &&
		(ref.Version.LessEqual(desktopV4Ceiling) || isRedirected(ref.ShortName, ref.Version))
	if onWindowsLegacy {
		return r.searchGAC(ref)
	}
	return r.searchRuntimeDirectory(ref)
}

// searchGAC walks the desktop GAC_MSIL/GAC_32/GAC_64 directories under
// %WINDIR%\Microsoft.NET\assembly for a short-name match, accepting a
// version-containing subdirectory when the full name matches, the reference
// version is the 0.0.0.0 wildcard, or the reference is redirect-table
// covered.
func (r *Resolver) searchGAC(ref assembly.Ref) *assembly.Def {
	root, ok := windowsDir()
	if !ok {
		return nil
	}
	base := filepath.Join(root, "Microsoft.NET", "assembly")
	for _, sub := range gacSubdirs {
		dir := filepath.Join(base, sub)
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() || !strings.EqualFold(e.Name(), ref.ShortName) {
				continue
			}
			versionDirs, err := os.ReadDir(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			for _, vd := range versionDirs {
				candidate := filepath.Join(dir, e.Name(), vd.Name(), ref.ShortName+".dll")
				if def := r.loadIfGACMatch(candidate, ref); def != nil {
					return def
				}
			}
		}
	}
	return nil
}

func (r *Resolver) loadIfGACMatch(path string, ref assembly.Ref) *assembly.Def {
	def, err := r.loader.Load(path)
	if err != nil || def == nil || !strings.EqualFold(def.Id.ShortName, ref.ShortName) {
		return nil
	}
	if def.Id.FullName() == ref.FullName() || ref.Version.IsZero() || isRedirected(ref.ShortName, ref.Version) {
		return def
	}
	return nil
}

// searchRuntimeDirectory implements the modern-runtime sibling-directory
// search: find the directory the current executable lives under, pick the
// lexicographically-last version-prefixed sibling matching ref's major
// version, and look for "{short-name}.dll" there. Major=4 with minor in
// {1,2} maps to prefix "3" because .NET Core 3.x publishes some reference
// assemblies under that numbering quirk (spec.md §4.C.3).
func (r *Resolver) searchRuntimeDirectory(ref assembly.Ref) *assembly.Def {
	exeDir := filepath.Dir(os.Args[0])
	runtimeRoot := filepath.Dir(exeDir)
	prefix := majorPrefix(ref.Version)

	siblings, err := os.ReadDir(runtimeRoot)
	if err == nil {
		var candidates []string
		for _, e := range siblings {
			if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
				candidates = append(candidates, e.Name())
			}
		}
		sort.Strings(candidates)
		for i := len(candidates) - 1; i >= 0; i-- {
			path := filepath.Join(runtimeRoot, candidates[i], ref.ShortName+".dll")
			if def := r.tryLoadDLL(path, ref); def != nil {
				return def
			}
		}
	}
	return r.tryLoadDLL(filepath.Join(exeDir, ref.ShortName+".dll"), ref)
}

func majorPrefix(v assembly.Version) string {
	if v.Major == 4 && (v.Minor == 1 || v.Minor == 2) {
		return "3"
	}
	return strconv.Itoa(int(v.Major))
}

func (r *Resolver) tryLoadDLL(path string, ref assembly.Ref) *assembly.Def {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	def, err := r.loader.Load(path)
	if err != nil || def == nil {
		return nil
	}
	return def
}
