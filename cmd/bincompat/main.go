// Command bincompat walks a set of managed assemblies and their app/web
// config files, resolves every cross-assembly reference, and reports
// binding failures, version mismatches, and InternalsVisibleTo usage
// (spec.md §4.H, component H).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/binarycompat/bincompat/internal/app"
	"github.com/binarycompat/bincompat/internal/fs"
	"github.com/binarycompat/bincompat/internal/log"
)

// ErrArgument is returned by Execute when the arguments themselves are bad
// (spec.md §6: -1 maps to exit code 1 at the shell, same as a mismatch).
var ErrArgument = fmt.Errorf("bincompat: invalid arguments")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts app.Options
	var patterns []string
	var verbose bool

	root := &cobra.Command{
		Use:           "bincompat [flags] <path>...",
		Short:         "Check binary compatibility of .NET assembly references",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, &opts, patterns, verbose)
		},
	}

	root.Flags().StringVar(&opts.Out, "out", app.DefaultReportFile, "report file to write/compare against")
	root.Flags().StringSliceVar(&patterns, "patterns", nil, "glob patterns selecting assemblies (default *.dll, *.exe, *.dll.config, *.exe.config)")
	root.Flags().StringSliceVar(&opts.CustomDirs, "dir", nil, "additional directory to search when resolving a reference")
	root.Flags().BoolVar(&opts.ListAssemblies, "list-assemblies", false, "include every examined assembly and its version in the report")
	root.Flags().BoolVar(&opts.IVT, "ivt", false, "also analyze InternalsVisibleTo usage and write .ivt report files")
	root.Flags().BoolVar(&opts.IgnoreVersionMismatch, "ignore-version-mismatch", false, "do not report resolvable version mismatches as diagnostics")
	root.Flags().Bool("embedded-interop-types", false, "accepted for compatibility; embedded-interop-type refs are always treated as resolved")
	root.Flags().Bool("int-ptr-ctors", false, "accepted for compatibility; IntPtr-only constructor refs are always treated as resolved")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log warnings for load/parse failures to stderr")

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// exitCode carries the result of runCheck out to main, since cobra's RunE
// only distinguishes error/no-error, not spec.md §6's match/mismatch split.
var exitCode int

func runCheck(cmd *cobra.Command, args []string, opts *app.Options, patterns []string, verbose bool) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: at least one path or pattern is required", ErrArgument)
	}
	if len(patterns) == 0 {
		patterns = fs.DefaultPatterns
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	files, err := fs.Expand(wd, args, patterns)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArgument, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no files matched", ErrArgument)
	}

	var logger *log.Helper
	if verbose {
		logger = log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stderr), log.FilterLevel(log.LevelWarn)))
	} else {
		logger = log.NewHelper(log.Discard)
	}

	result, err := app.Run(files, *opts, logger)
	if err != nil {
		return err
	}

	if !result.Matched {
		app.PrintDiff(os.Stderr, result.Diff)
		exitCode = 1
		return nil
	}
	exitCode = 0
	return nil
}
