package assembly

import "fmt"

// Version is the 4-tuple assembly version used everywhere a spec.md version
// comparison is needed: AssemblyId.Version, AssemblyRef.Version, the
// framework-redirect table, and binding-redirect ranges.
type Version struct {
	Major    uint16
	Minor    uint16
	Build    uint16
	Revision uint16
}

// String renders the version the way .NET display names do: "1.2.3.4".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// IsZero reports whether v is the "0.0.0.0" wildcard version.
func (v Version) IsZero() bool {
	return v.Major == 0 && v.Minor == 0 && v.Build == 0 && v.Revision == 0
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other, comparing Major/Minor/Build/Revision in that order.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return cmp16(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmp16(v.Minor, other.Minor)
	}
	if v.Build != other.Build {
		return cmp16(v.Build, other.Build)
	}
	return cmp16(v.Revision, other.Revision)
}

// LessEqual reports whether v <= other.
func (v Version) LessEqual(other Version) bool { return v.Compare(other) <= 0 }

func cmp16(a, b uint16) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// ParseVersion parses a "major.minor.build.revision" string, where any
// trailing components may be omitted (defaulting to 0), matching the
// leniency of System.Version's string constructor.
func ParseVersion(s string) (Version, error) {
	var v Version
	var parts [4]uint16
	n := 0
	cur := 0
	sawDigit := false
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '.' {
			if !sawDigit {
				return v, fmt.Errorf("invalid version %q", s)
			}
			if n >= 4 {
				return v, fmt.Errorf("invalid version %q: too many components", s)
			}
			parts[n] = uint16(cur)
			n++
			cur = 0
			sawDigit = false
			continue
		}
		c := s[i]
		if c < '0' || c > '9' {
			return v, fmt.Errorf("invalid version %q", s)
		}
		cur = cur*10 + int(c-'0')
		sawDigit = true
	}
	v.Major, v.Minor, v.Build, v.Revision = parts[0], parts[1], parts[2], parts[3]
	return v, nil
}
