// Package app wires the loader, resolver, checker, redirect, diagnostic,
// baseline, and IVT packages together into the driver sequence spec.md
// §4.H / §2 describes, independent of how the command line is parsed.
package app

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/binarycompat/bincompat/assembly"
	"github.com/binarycompat/bincompat/baseline"
	"github.com/binarycompat/bincompat/checker"
	"github.com/binarycompat/bincompat/diagnostic"
	"github.com/binarycompat/bincompat/internal/log"
	"github.com/binarycompat/bincompat/ivt"
	"github.com/binarycompat/bincompat/redirect"
	"github.com/binarycompat/bincompat/resolver"
)

// Options configures one run of the driver, one field per CLI flag in
// spec.md §6 (long-form Cobra names are assigned in cmd/bincompat).
type Options struct {
	Out                   string
	CustomDirs            []string
	ListAssemblies        bool
	IVT                   bool
	IgnoreVersionMismatch bool
}

// DefaultReportFile is spec.md §6's default /out: value.
const DefaultReportFile = "BinaryCompatReport.txt"

// Result is the outcome of one driver run, sufficient for main() to pick an
// exit code (spec.md §6: 0 success, 1 mismatch).
type Result struct {
	Matched bool
	Seeded  bool
	Diff    string
}

// Run implements component H: it partitions files into config files and
// candidate assemblies, runs every non-framework assembly through the
// checker, applies config redirects to the resulting version mismatches,
// and renders/compares the final report.
func Run(files []string, opts Options, logger *log.Helper) (Result, error) {
	if opts.Out == "" {
		opts.Out = DefaultReportFile
	}
	if logger == nil {
		logger = log.NewHelper(log.Discard)
	}

	var assemblyPaths, configPaths []string
	for _, f := range files {
		if isConfigFile(f) {
			configPaths = append(configPaths, f)
		} else {
			assemblyPaths = append(assemblyPaths, f)
		}
	}
	sort.Strings(assemblyPaths)
	sort.Strings(configPaths)

	loader := assembly.NewLoader(runtime.GOOS == "windows")
	res := resolver.New(loader, assemblyPaths, opts.CustomDirs)
	diags := diagnostic.NewSet()
	chk := checker.New(res, diags)
	chk.IgnoreVersionMismatch = opts.IgnoreVersionMismatch

	ivtAnalyzer := ivt.New()
	if opts.IVT {
		chk.OnMemberResolved(ivtAnalyzer.Observe)
	}

	for _, path := range assemblyPaths {
		def, err := loader.Load(path)
		if err != nil {
			diags.Add(err.Error())
			logger.Warnf("load failure for %s: %v", path, err)
			continue
		}
		if def == nil {
			continue
		}
		if assembly.IsFramework(def) {
			continue
		}
		res.Register(def)
		chk.Check(def)
	}

	redirectProc := redirect.New()
	for _, path := range configPaths {
		redirects, err := redirectProc.Parse(path)
		if err != nil {
			logger.Warnf("failed to parse config %s: %v", path, err)
			continue
		}
		redirectProc.Apply(path, redirects, chk.Mismatches())
	}

	if !opts.IgnoreVersionMismatch {
		for _, m := range chk.Mismatches() {
			if !m.Suppressed() {
				diags.Add(m.Line())
			}
		}
	}

	examined := formatExamined(loader.Examined())
	report := baseline.Report(diags.Sorted(), examined, opts.ListAssemblies)

	cmp, err := baseline.Compare(opts.Out, report)
	if err != nil {
		return Result{}, err
	}

	if opts.IVT {
		if err := ivtAnalyzer.WriteReports(opts.Out); err != nil {
			logger.Warnf("failed to write IVT reports: %v", err)
		}
	}

	return Result{Matched: cmp.Matched, Seeded: cmp.Seeded, Diff: cmp.Diff}, nil
}

// PrintDiff writes a Run result's diff to w (baseline.PrintDiff, colored
// when w is a terminal).
func PrintDiff(w io.Writer, diff string) {
	baseline.PrintDiff(w, diff)
}

func isConfigFile(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".exe.config") || strings.HasSuffix(lower, ".dll.config")
}

// formatExamined renders spec.md §6's examined-assemblies report lines:
// "{relative-path}\t{version}[ {target-framework}]".
func formatExamined(entries []assembly.ExaminedEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		rel := e.Path
		if abs, err := filepath.Abs(e.Path); err == nil {
			if wd, err := filepath.Abs("."); err == nil {
				if r, err := filepath.Rel(wd, abs); err == nil {
					rel = r
				}
			}
		}
		line := fmt.Sprintf("%s\t%s", rel, e.Version)
		if e.TargetFramework != "" {
			line += " " + e.TargetFramework
		}
		out = append(out, line)
	}
	sort.Strings(out)
	return out
}
