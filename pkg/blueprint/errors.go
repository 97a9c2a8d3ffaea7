package blueprint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/quarryhq/quarry/pkg/resource"
)

// UnknownResourceError is returned when a persisted resource path has no
// registered definition to resolve it.
type UnknownResourceError struct {
	Path string
}

// Error implements the error interface.
func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("no registered definition for resource %s", e.Path)
}

// VerifyFailure aggregates the verification failures of every resource in a
// blueprint. Verification walks all resources before reporting.
type VerifyFailure struct {
	Failures []*resource.VerifyError
}

// Error implements the error interface.
func (e *VerifyFailure) Error() string {
	sorted := make([]*resource.VerifyError, len(e.Failures))
	copy(sorted, e.Failures)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ResourceName < sorted[j].ResourceName
	})

	msgs := make([]string, 0, len(sorted))
	for _, f := range sorted {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("blueprint verification failed:\n%s", strings.Join(msgs, "\n"))
}
