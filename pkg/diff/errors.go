package diff

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/quarryhq/quarry/pkg/resource"
)

// ErrNoDiff is returned when results are requested before a successful Diff.
var ErrNoDiff = errors.New("no diff has been computed")

// VersionIncompatibilityError reports that a persisted resource was saved at
// a major version the current definition cannot handle. The whole diff is
// aborted when this is raised.
type VersionIncompatibilityError struct {
	Path     string
	Saved    resource.Version
	Declared resource.Version
}

// Error implements the error interface.
func (e *VersionIncompatibilityError) Error() string {
	return fmt.Sprintf("resource %s was saved at version %s, incompatible with declared version %s",
		e.Path, e.Saved, e.Declared)
}

// ApplyError aggregates every failure accumulated during an apply run. The
// apply stops advancing phases once errors exist, but everything already in
// flight completes; partial application stands.
type ApplyError struct {
	Errors []string
}

// Error implements the error interface.
func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply failed with %d error(s):\n%s",
		len(e.Errors), strings.Join(e.Errors, "\n"))
}

// UnhandledModificationsError reports attribute modifications that no handler
// claimed. This is a provider-completeness failure, distinct from ordinary
// apply errors, and takes precedence over them.
type UnhandledModificationsError struct {
	// Attributes maps resource paths to the attribute names left unhandled.
	Attributes map[string][]string
}

// Error implements the error interface.
func (e *UnhandledModificationsError) Error() string {
	paths := make([]string, 0, len(e.Attributes))
	for path := range e.Attributes {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		parts = append(parts, fmt.Sprintf("%s: %s", path, strings.Join(e.Attributes[path], ", ")))
	}
	return fmt.Sprintf("unhandled attribute modifications: %s", strings.Join(parts, "; "))
}
