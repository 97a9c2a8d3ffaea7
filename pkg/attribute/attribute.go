// Package attribute defines the per-field schema descriptors used by quarry
// resource definitions. A descriptor carries the constraints for one attribute
// (required, choices, allowed kinds, numeric range) plus the flags that drive
// diffing and rendering (rebuild-on-modify, dynamic, secret).
package attribute

import (
	"fmt"
	"reflect"
)

// Kind is a coarse runtime-type tag for attribute values.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
	KindMap    Kind = "map"

	// KindUnknown is returned for values that map to none of the supported kinds.
	KindUnknown Kind = "unknown"
)

// KindOf classifies a runtime value into its Kind.
func KindOf(v any) Kind {
	switch v.(type) {
	case string:
		return KindString
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindInt
	case float32, float64:
		return KindFloat
	case bool:
		return KindBool
	case []any, []string, []int, []float64:
		return KindList
	case map[string]any:
		return KindMap
	case nil:
		return KindUnknown
	default:
		// Less common slice and map element types fall through to reflection.
		switch reflect.ValueOf(v).Kind() {
		case reflect.Slice, reflect.Array:
			return KindList
		case reflect.Map:
			return KindMap
		default:
			return KindUnknown
		}
	}
}

// Range defines the inclusive minimum and maximum for a numeric attribute.
type Range struct {
	Min float64
	Max float64
}

// Contains reports whether v falls within the range, inclusive on both ends.
func (r Range) Contains(v float64) bool {
	return r.Min <= v && v <= r.Max
}

// String renders the range for verification error messages.
func (r Range) String() string {
	return fmt.Sprintf("[%v, %v]", r.Min, r.Max)
}

// Attribute describes a single field of a resource definition.
// Descriptors are declared statically on a resource type; attribute values live
// in the resource instance's value map, never on the descriptor itself.
type Attribute struct {
	// Name is the attribute name within the resource schema.
	Name string

	// Required indicates the attribute must have a non-nil value.
	Required bool

	// Default is the value used when no explicit value is set. Resolved lazily
	// at read time.
	Default any

	// Choices restricts the value to one of the listed entries. When the value
	// is itself a list, every element must be a valid choice.
	Choices []any

	// Kinds restricts the runtime type of the value. Empty means unrestricted.
	Kinds []Kind

	// NumberRange restricts numeric values to an inclusive range.
	NumberRange *Range

	// ModifyRebuild marks the attribute as destructive to change: a value
	// difference forces the resource to be destroyed and recreated.
	ModifyRebuild bool

	// Dynamic marks the attribute as system-assigned. Dynamic values are never
	// user-supplied and are excluded from diff classification.
	Dynamic bool

	// Secret marks the attribute as sensitive. Secret values are never rendered
	// verbatim.
	Secret bool
}

// AllowsChoice reports whether v is an acceptable value per the Choices list.
// List values are checked element-wise.
func (a *Attribute) AllowsChoice(v any) bool {
	if len(a.Choices) == 0 {
		return true
	}

	if items, ok := v.([]any); ok {
		for _, item := range items {
			if !a.isChoice(item) {
				return false
			}
		}
		return true
	}

	return a.isChoice(v)
}

func (a *Attribute) isChoice(v any) bool {
	for _, choice := range a.Choices {
		if choice == v {
			return true
		}
	}
	return false
}

// AllowsKind reports whether the runtime kind of v is permitted.
func (a *Attribute) AllowsKind(v any) bool {
	if len(a.Kinds) == 0 {
		return true
	}

	kind := KindOf(v)
	for _, allowed := range a.Kinds {
		if kind == allowed {
			return true
		}
	}
	return false
}

// AsNumber converts v to a float64 for range checking. The second return value
// is false when v is not numeric.
func AsNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
