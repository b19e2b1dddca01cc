// Package resolver implements the reference resolver (spec.md §4.C,
// component C): mapping a symbolic AssemblyRef to a loaded AssemblyDef
// through a strict, ordered, five-strategy search.
package resolver

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/binarycompat/bincompat/assembly"
)

// DefaultMaxDepth bounds facade-forward recursion (spec.md §4.C failure
// mode, §9 "deep recursion during resolve"): an explicit depth budget in
// place of relying on goroutine stack-guard pages.
const DefaultMaxDepth = 32

// Resolver implements spec.md §4.C's five-strategy layered assembly search,
// memoized by ref.FullName().
type Resolver struct {
	loader     *assembly.Loader
	customDirs []string
	inputPaths []string
	inputDirs  []string
	MaxDepth   int

	mu          sync.Mutex
	byFullName  map[string]*assembly.Def
	byShortName map[string][]*assembly.Def
	memo        map[string]*assembly.Def
	memoDone    map[string]bool
}

// New creates a Resolver. inputPaths is the full candidate assembly file
// list from the command line (spec.md §4.C strategy 2); customDirs is the
// user-supplied search path list, in declared order (strategy 4).
func New(loader *assembly.Loader, inputPaths, customDirs []string) *Resolver {
	dirSet := make(map[string]bool)
	var dirs []string
	for _, p := range inputPaths {
		d := filepath.Dir(p)
		if !dirSet[d] {
			dirSet[d] = true
			dirs = append(dirs, d)
		}
	}
	return &Resolver{
		loader:      loader,
		customDirs:  customDirs,
		inputPaths:  inputPaths,
		inputDirs:   dirs,
		MaxDepth:    DefaultMaxDepth,
		byFullName:  make(map[string]*assembly.Def),
		byShortName: make(map[string][]*assembly.Def),
		memo:        make(map[string]*assembly.Def),
		memoDone:    make(map[string]bool),
	}
}

// Register makes def visible to future strict/loose-hit lookups (strategies
// 1 and 5). The driver calls this for every non-framework input assembly it
// loads directly, not only for assemblies discovered through Resolve.
func (r *Resolver) Register(def *assembly.Def) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.register(def)
}

func (r *Resolver) register(def *assembly.Def) {
	r.byFullName[def.Id.FullName()] = def
	key := strings.ToLower(def.Id.ShortName)
	for _, existing := range r.byShortName[key] {
		if existing == def {
			return
		}
	}
	r.byShortName[key] = append(r.byShortName[key], def)
}

// Resolve maps ref to a loaded AssemblyDef, or nil if every strategy fails.
// depth is the facade-forward recursion depth; a caller following an
// ExportedType.Implementation chain across assemblies should pass depth+1 on
// each hop so pathological forward chains terminate instead of recursing
// forever.
func (r *Resolver) Resolve(ref assembly.Ref, depth int) *assembly.Def {
	if depth > r.MaxDepth {
		return nil
	}

	key := ref.FullName()
	r.mu.Lock()
	if r.memoDone[key] {
		def := r.memo[key]
		r.mu.Unlock()
		return def
	}
	r.mu.Unlock()

	def := r.resolveUncached(ref)

	r.mu.Lock()
	r.memoDone[key] = true
	r.memo[key] = def
	if def != nil {
		r.register(def)
	}
	r.mu.Unlock()
	return def
}

func (r *Resolver) resolveUncached(ref assembly.Ref) *assembly.Def {
	if def := r.strictHit(ref); def != nil {
		return def
	}
	if def := r.inputFileSetHit(ref); def != nil {
		return def
	}
	if assembly.IsFrameworkName(ref.ShortName) {
		if def := r.resolveFramework(ref); def != nil {
			return def
		}
	}
	if def := r.customDirHit(ref); def != nil {
		return def
	}
	return r.looseHit(ref)
}

// strictHit is strategy 1: a full AssemblyId match among already-loaded
// assemblies.
func (r *Resolver) strictHit(ref assembly.Ref) *assembly.Def {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byFullName[ref.FullName()]
}

// looseHit is strategy 5: the last resort, matching on short name alone.
func (r *Resolver) looseHit(ref assembly.Ref) *assembly.Def {
	r.mu.Lock()
	defer r.mu.Unlock()
	defs := r.byShortName[strings.ToLower(ref.ShortName)]
	if len(defs) == 0 {
		return nil
	}
	return defs[0]
}

// inputFileSetHit is strategy 2: a positional input file whose stem matches
// ref.ShortName, or a sibling "{short-name}.dll" in one of the input file
// directories.
func (r *Resolver) inputFileSetHit(ref assembly.Ref) *assembly.Def {
	for _, p := range r.inputPaths {
		stem := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		if !strings.EqualFold(stem, ref.ShortName) {
			continue
		}
		def, err := r.loader.Load(p)
		if err != nil || def == nil || assembly.IsFacade(def) {
			continue
		}
		return def
	}
	for _, dir := range r.inputDirs {
		def := r.tryLoadDLL(filepath.Join(dir, ref.ShortName+".dll"), ref)
		if def != nil && !assembly.IsFacade(def) {
			return def
		}
	}
	return nil
}

// customDirHit is strategy 4: the first user-supplied directory carrying
// "{short-name}.dll".
func (r *Resolver) customDirHit(ref assembly.Ref) *assembly.Def {
	for _, dir := range r.customDirs {
		if def := r.tryLoadDLL(filepath.Join(dir, ref.ShortName+".dll"), ref); def != nil {
			return def
		}
	}
	return nil
}
