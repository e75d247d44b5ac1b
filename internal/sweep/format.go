package sweep

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an external tabular encoding.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

// MIME types attached to exports.
const (
	MIMETypeCSV  = "text/csv"
	MIMETypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// String returns the short, lower-case name used in forms and URLs.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Label is the name shown to users ("CSV" or "Excel").
func (f Format) Label() string {
	if def, ok := Lookup(f); ok {
		return def.Label
	}
	return f.String()
}

// Extension returns the canonical extension including the dot.
func (f Format) Extension() string {
	if def, ok := Lookup(f); ok {
		return def.Extension
	}
	return ""
}

// MIMEType returns the content type of an export in this format.
func (f Format) MIMEType() string {
	if def, ok := Lookup(f); ok {
		return def.MIMEType
	}
	return "application/octet-stream"
}

// ParseFormat resolves a form value ("csv", "xlsx", "excel") to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

// FormatFromName derives the format from a filename's extension,
// case-insensitively, after peeling any compression suffix. The returned
// extension is the full suffix that was recognised (e.g. ".csv.gz").
func FormatFromName(name string) (Format, string, error) {
	base, comp := splitCompression(name)
	ext := strings.ToLower(filepath.Ext(base))
	def, ok := lookupExtension(ext)
	if !ok {
		return 0, ext + comp.Extension(), unsupportedFormat(name, ext+comp.Extension())
	}
	return def.Format, ext + comp.Extension(), nil
}

// OutputName replaces the extension of name with the canonical extension
// of target. A compression suffix is dropped along with the extension.
func OutputName(name string, target Format) string {
	base, _ := splitCompression(name)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + target.Extension()
}
