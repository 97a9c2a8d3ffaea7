package diff

// Result classifies what a comparison found, for a single attribute, one
// resource, or a whole blueprint.
type Result int

const (
	// Same means no difference.
	Same Result = iota

	// New means present in the source but not the destination.
	New

	// Deleted means present in the destination but not the source.
	Deleted

	// Conflict means present on both sides with differing values that can be
	// reconciled in place.
	Conflict

	// RebuildRequired means a differing attribute can only be reconciled by
	// destroying and recreating the resource.
	RebuildRequired
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case Same:
		return "same"
	case New:
		return "new"
	case Deleted:
		return "deleted"
	case Conflict:
		return "conflict"
	case RebuildRequired:
		return "rebuild required"
	default:
		return "unknown"
	}
}
