package diff

import (
	"fmt"
	"io"
)

// Render writes the computed diff in human-readable form. Each changed
// resource gets a header line, then one line per differing attribute:
//
//	++ new attribute, -- deleted attribute,
//	!! conflict that forces a rebuild, @@ conflict reconciled in place.
//
// Secret values render as <secret> and dynamic values as <TBD>, always.
func (d *Differ) Render(w io.Writer) error {
	if d.result == nil {
		return ErrNoDiff
	}

	for _, path := range d.result.Paths() {
		rdiff := d.result.Resources[path]
		if rdiff.Result == Same {
			continue
		}

		if err := renderResource(w, path, rdiff); err != nil {
			return err
		}
	}

	return nil
}

func renderResource(w io.Writer, path string, rdiff *ResourceDiff) error {
	var header string
	switch rdiff.Result {
	case New:
		header = fmt.Sprintf("[%s] CREATING", path)
	case Deleted:
		header = fmt.Sprintf("[%s] DELETING", path)
	case Conflict:
		header = fmt.Sprintf("[%s] UPDATING", path)
	case RebuildRequired:
		header = fmt.Sprintf("[%s] REBUILD REQUIRED. See attributes marked with %q", path, "!!")
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, name := range rdiff.AttributeNames() {
		adiff := rdiff.Attributes[name]

		var line string
		switch adiff.Result {
		case New:
			line = fmt.Sprintf("++ %s: <none> => %s", name, adiff.RenderSrcValue())
		case Deleted:
			line = fmt.Sprintf("-- %s: %s", name, adiff.RenderDestValue())
		case Conflict:
			marker := "@@"
			if adiff.attr() != nil && adiff.attr().ModifyRebuild {
				marker = "!!"
			}
			line = fmt.Sprintf("%s %s: %s => %s", marker, name, adiff.RenderDestValue(), adiff.RenderSrcValue())
		default:
			continue
		}
		if _, err := fmt.Fprintf(w, "\t%s\n", line); err != nil {
			return err
		}
	}

	return nil
}
