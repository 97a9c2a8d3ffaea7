package diff

import (
	"fmt"
	"sort"

	"github.com/quarryhq/quarry/pkg/attribute"
	"github.com/quarryhq/quarry/pkg/resource"
)

// AttributeDiff records the comparison of one attribute across the source
// and destination sides.
type AttributeDiff struct {
	SrcValue  any
	DestValue any

	SrcAttribute  *attribute.Attribute
	DestAttribute *attribute.Attribute

	Result Result
}

// Name returns the attribute's name from whichever side declares it.
func (d *AttributeDiff) Name() string {
	if d.SrcAttribute != nil {
		return d.SrcAttribute.Name
	}
	if d.DestAttribute != nil {
		return d.DestAttribute.Name
	}
	return ""
}

// attr returns whichever descriptor is available, preferring the source.
func (d *AttributeDiff) attr() *attribute.Attribute {
	if d.SrcAttribute != nil {
		return d.SrcAttribute
	}
	return d.DestAttribute
}

// RenderSrcValue returns the source value as display text, with secret and
// dynamic values masked.
func (d *AttributeDiff) RenderSrcValue() string {
	return displayValue(d.attr(), d.SrcValue)
}

// RenderDestValue returns the destination value as display text, with secret
// and dynamic values masked.
func (d *AttributeDiff) RenderDestValue() string {
	return displayValue(d.attr(), d.DestValue)
}

// displayValue filters an attribute value for human output. Secret values
// never render; dynamic values are system-assigned and unknown until apply.
func displayValue(attr *attribute.Attribute, value any) string {
	if attr != nil && attr.Secret {
		return "<secret>"
	}
	if attr != nil && attr.Dynamic {
		return "<TBD>"
	}
	if value == nil {
		return "<none>"
	}
	return fmt.Sprintf("%v", value)
}

// ResourceDiff records the comparison of one resource across the two sides.
// Either side may be nil: a nil Dest means the resource is new, a nil Src
// means it was deleted.
type ResourceDiff struct {
	Src  *resource.Resource
	Dest *resource.Resource

	Result     Result
	Attributes map[string]*AttributeDiff

	path string
}

// Path returns the resource's normalized (namespace-stripped) path.
func (d *ResourceDiff) Path() string {
	return d.path
}

// AttributeNames returns the attribute diff names in sorted order.
func (d *ResourceDiff) AttributeNames() []string {
	names := make([]string, 0, len(d.Attributes))
	for name := range d.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// escalate raises the resource result, never lowering it. The only legal
// climb is Same -> Conflict -> RebuildRequired; New and Deleted are terminal
// classifications assigned at construction.
func (d *ResourceDiff) escalate(r Result) {
	if r == RebuildRequired {
		d.Result = RebuildRequired
		return
	}
	if r == Conflict && d.Result == Same {
		d.Result = Conflict
	}
}

// BlueprintDiff is the complete comparison of two blueprints, keyed by
// normalized resource path. It is immutable once computed.
type BlueprintDiff struct {
	Resources map[string]*ResourceDiff
}

// Result reports Same only when every resource compared Same.
func (d *BlueprintDiff) Result() Result {
	for _, rdiff := range d.Resources {
		if rdiff.Result != Same {
			return Conflict
		}
	}
	return Same
}

// Paths returns the normalized resource paths in sorted order.
func (d *BlueprintDiff) Paths() []string {
	paths := make([]string, 0, len(d.Resources))
	for path := range d.Resources {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}
