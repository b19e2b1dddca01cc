// Package baseline implements the report renderer and baseline comparator
// (spec.md §4.F, component F): assembling the final report buffer and
// diffing it against a checked-in baseline file.
package baseline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/pmezard/go-difflib/difflib"
)

// Report assembles the final report buffer: section one is the sorted
// diagnostics, section two (only when listAssemblies is set) is the sorted
// examined-assemblies list, already formatted as report lines (spec.md §6
// report file format).
func Report(diagnostics, examined []string, listAssemblies bool) string {
	var b strings.Builder
	for _, d := range diagnostics {
		b.WriteString(d)
		b.WriteString("\n")
	}
	if listAssemblies {
		for _, e := range examined {
			b.WriteString(e)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Result is the outcome of comparing a freshly rendered report against the
// checked-in baseline file.
type Result struct {
	Seeded  bool
	Matched bool
	Diff    string
}

// Compare reads the baseline file at path and compares it against report. If
// the file does not exist, it is written and the run is treated as a
// successful baseline seed. If it exists and differs line-for-line, it is
// overwritten best-effort (failures are silent, matching spec.md §4.F) and a
// unified diff is returned for display; the caller treats this as exit
// failure.
func Compare(path, report string) (Result, error) {
	existing, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if werr := os.WriteFile(path, []byte(report), 0o644); werr != nil {
			return Result{}, werr
		}
		return Result{Seeded: true, Matched: true}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if string(existing) == report {
		return Result{Matched: true}, nil
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(existing)),
		B:        difflib.SplitLines(report),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
	_ = os.WriteFile(path, []byte(report), 0o644)
	return Result{Matched: false, Diff: diff}, nil
}

// PrintDiff writes diff to w, colored (additions green, removals red) when w
// is a TTY, following the teacher's own isatty-gated color conventions.
func PrintDiff(w io.Writer, diff string) {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	add := color.New(color.FgGreen)
	remove := color.New(color.FgRed)
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			printLine(w, add, useColor, line)
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			printLine(w, remove, useColor, line)
		default:
			fmt.Fprintln(w, line)
		}
	}
}

func printLine(w io.Writer, c *color.Color, useColor bool, line string) {
	if useColor {
		c.Fprintln(w, line)
		return
	}
	fmt.Fprintln(w, line)
}
