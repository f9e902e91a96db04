// Package source turns downloaded report documents into ordered text lines
// for the extraction engine.
package source

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-report-cli/internal/staging"
)

// Format is the document type a site publishes its reports in.
type Format string

const (
	FormatText  Format = "text"
	FormatHTML  Format = "html"
	FormatPDF   Format = "pdf"
	FormatImage Format = "image"
	FormatXLSX  Format = "xlsx"
	FormatJSON  Format = "json"
)

// ColumnSep joins table cells into one line. Sites reading tables set their
// column split to a tab.
const ColumnSep = "\t"

// NeedsConversion reports whether documents of this format are staged and
// run through an external converter.
func (f Format) NeedsConversion() bool {
	return f == FormatPDF || f == FormatImage
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatText, FormatHTML, FormatPDF, FormatImage, FormatXLSX, FormatJSON:
		return true
	}
	return false
}

// Options carries the per-site parsing settings.
type Options struct {
	// HTMLSelector selects the elements that become lines. Default "tr".
	HTMLSelector string
	// JSONFields orders the object fields that make up a line.
	JSONFields []string
	// Sheet is the XLSX sheet index.
	Sheet int
}

// Lines converts an in-memory document into lines. Formats that need an
// external converter are rejected.
func Lines(format Format, data []byte, opts Options) ([]string, error) {
	switch format {
	case FormatText:
		return staging.SplitLines(data), nil
	case FormatHTML:
		return HTMLLines(data, opts.HTMLSelector)
	case FormatXLSX:
		return XLSXLines(data, opts.Sheet)
	case FormatJSON:
		return JSONLines(data, opts.JSONFields)
	default:
		return nil, eris.Errorf("source: format %q needs conversion", format)
	}
}

func joinCells(cells []string) string {
	kept := make([]string, 0, len(cells))
	for _, c := range cells {
		if c = strings.Join(strings.Fields(c), " "); c != "" {
			kept = append(kept, c)
		}
	}
	return strings.Join(kept, ColumnSep)
}
