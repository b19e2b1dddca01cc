//go:build windows

package resolver

import "golang.org/x/sys/windows"

// windowsDir returns %WINDIR%, used as the root of the desktop-framework
// GAC search (spec.md §4.C strategy 3).
func windowsDir() (string, bool) {
	dir, err := windows.GetWindowsDirectory()
	if err != nil {
		return "", false
	}
	return dir, true
}
