// Package fs expands the driver's positional file-set arguments (directory,
// file, or glob, with "**" recursive wildcards and ";"-separated pattern
// lists) and "!"-prefixed exclusions into a concrete, sorted file list.
package fs

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultPatterns are the include globs applied when the driver receives no
// explicit /p:GLOB argument.
var DefaultPatterns = []string{"*.dll", "*.exe", "*.dll.config", "*.exe.config"}

// DefaultExclusions are applied in addition to any "!"-prefixed argument.
var DefaultExclusions = []string{"*.resources.dll"}

// Expand resolves a set of positional arguments against root, honoring
// patterns (semicolon-separated globs) for bare directory arguments, and
// returns a sorted, de-duplicated list of absolute-relative file paths.
// Arguments beginning with "!" are treated as exclusion globs instead of
// inclusions. A leading "@" argument is expanded into one argument per
// non-empty line of the named response file before any other processing.
func Expand(root string, args []string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}

	args, err := expandResponseFiles(args)
	if err != nil {
		return nil, err
	}

	if len(args) == 0 {
		args = []string{root}
	}

	include := map[string]bool{}
	exclude := map[string]bool{}

	for _, arg := range args {
		neg := strings.HasPrefix(arg, "!")
		arg = strings.TrimPrefix(arg, "!")

		matches, err := resolveArg(root, arg, patterns)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if neg {
				exclude[m] = true
			} else {
				include[m] = true
			}
		}
	}

	for _, pat := range DefaultExclusions {
		for m := range include {
			if ok, _ := doublestar.Match(pat, filepath.Base(m)); ok {
				exclude[m] = true
			}
		}
	}

	out := make([]string, 0, len(include))
	for m := range include {
		if !exclude[m] {
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out, nil
}

// resolveArg turns one positional argument into a list of matched paths: a
// directory is expanded against every semicolon-separated pattern
// (recursively, if any pattern contains "**"); a file or glob is matched
// directly.
func resolveArg(root, arg string, patterns []string) ([]string, error) {
	info, err := os.Stat(arg)
	if err == nil && info.IsDir() {
		var out []string
		for _, pat := range patterns {
			for _, p := range strings.Split(pat, ";") {
				p = strings.TrimSpace(p)
				if p == "" {
					continue
				}
				matches, err := doublestar.Glob(os.DirFS(arg), p)
				if err != nil {
					return nil, err
				}
				for _, m := range matches {
					out = append(out, filepath.Join(arg, m))
				}
			}
		}
		return out, nil
	}
	if err == nil {
		return []string{arg}, nil
	}

	// Not an existing directory or file: treat arg itself as a glob rooted
	// at root, supporting "**" recursive wildcards directly.
	matches, err := doublestar.Glob(os.DirFS(root), arg)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(root, m))
	}
	return out, nil
}

func expandResponseFiles(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		if !strings.HasPrefix(a, "@") {
			out = append(out, a)
			continue
		}
		f, err := os.Open(strings.TrimPrefix(a, "@"))
		if err != nil {
			return nil, err
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				out = append(out, line)
			}
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
