package graph

import (
	"fmt"
	"strings"
)

// CircularDependencyError reports that the graph could not be fully resolved.
// Nodes holds the paths that were still blocked when resolution stalled; the
// cycle is somewhere within that set.
type CircularDependencyError struct {
	Nodes []string
}

// Error implements the error interface.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected among: %s", strings.Join(e.Nodes, ", "))
}
