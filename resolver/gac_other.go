//go:build !windows

package resolver

// windowsDir has no answer off Windows; the GAC search it feeds is itself
// gated on runtime.GOOS == "windows" in resolveFramework.
func windowsDir() (string, bool) { return "", false }
