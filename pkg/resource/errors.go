package resource

import (
	"fmt"
	"sort"
	"strings"
)

// VerifyError aggregates every attribute verification failure for one
// resource. Verification never stops at the first problem.
type VerifyError struct {
	ResourceName    string
	AttributeErrors map[string][]string
}

// Error implements the error interface.
func (e *VerifyError) Error() string {
	names := make([]string, 0, len(e.AttributeErrors))
	for name := range e.AttributeErrors {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "verification failed for %s:", e.ResourceName)
	for _, name := range names {
		for _, msg := range e.AttributeErrors[name] {
			fmt.Fprintf(&sb, "\n  %s: %s", name, msg)
		}
	}
	return sb.String()
}

// add records one failure message against an attribute.
func (e *VerifyError) add(attr, msg string) {
	if e.AttributeErrors == nil {
		e.AttributeErrors = make(map[string][]string)
	}
	e.AttributeErrors[attr] = append(e.AttributeErrors[attr], msg)
}

// empty reports whether no failures were recorded.
func (e *VerifyError) empty() bool {
	return len(e.AttributeErrors) == 0
}

// AttributeError is returned when an attribute name is not part of a
// resource's schema.
type AttributeError struct {
	ResourceName  string
	AttributeName string
}

// Error implements the error interface.
func (e *AttributeError) Error() string {
	return fmt.Sprintf("resource %s has no attribute %s", e.ResourceName, e.AttributeName)
}

// CreateError is returned when provisioning a resource fails.
type CreateError struct {
	ResourceName string
	Err          error
}

// Error implements the error interface.
func (e *CreateError) Error() string {
	return fmt.Sprintf("failed to create %s: %v", e.ResourceName, e.Err)
}

// Unwrap returns the underlying error.
func (e *CreateError) Unwrap() error { return e.Err }

// DeleteError is returned when tearing down a resource fails.
type DeleteError struct {
	ResourceName string
	Err          error
}

// Error implements the error interface.
func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete %s: %v", e.ResourceName, e.Err)
}

// Unwrap returns the underlying error.
func (e *DeleteError) Unwrap() error { return e.Err }

// ModifyError is returned when an attribute modification handler fails.
type ModifyError struct {
	ResourceName  string
	AttributeName string
	Err           error
}

// Error implements the error interface.
func (e *ModifyError) Error() string {
	if e.AttributeName == "" {
		return fmt.Sprintf("failed to modify %s: %v", e.ResourceName, e.Err)
	}
	return fmt.Sprintf("failed to modify %s.%s: %v", e.ResourceName, e.AttributeName, e.Err)
}

// Unwrap returns the underlying error.
func (e *ModifyError) Unwrap() error { return e.Err }
