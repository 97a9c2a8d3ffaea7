package resource

import "fmt"

// Version identifies a resource definition's provider version. Compatibility
// between a saved resource and the definition now in use is judged on the
// major number alone.
type Version struct {
	Major int
	Minor int
	Build int
	Label string
}

// String renders the version as major.minor.build with an optional -label.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)
	if v.Label != "" {
		s += "-" + v.Label
	}
	return s
}

// CompatibleWith reports whether a resource saved at version v can be handled
// by a definition at version other. Only a major-number mismatch is breaking.
func (v Version) CompatibleWith(other Version) bool {
	return v.Major == other.Major
}
