package sweep

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

// DecodeFunc parses a whole file into a Table.
type DecodeFunc func(data []byte) (*Table, error)

// EncodeFunc writes a Table to w.
type EncodeFunc func(t *Table, w io.Writer) error

// FormatDefinition contains everything needed to read and write a format.
type FormatDefinition struct {
	Format    Format
	Label     string // "CSV", "Excel"
	Extension string // canonical extension with dot, lower case
	MIMEType  string
	Decode    DecodeFunc
	Encode    EncodeFunc
}

var (
	registry   = make(map[Format]FormatDefinition)
	registryMu sync.RWMutex
)

// Register adds a format definition to the registry.
// Panics if the format or its extension is already registered.
func Register(def FormatDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Format]; exists {
		panic(fmt.Sprintf("format already registered: %s", def.Format))
	}
	def.Extension = strings.ToLower(def.Extension)
	for _, other := range registry {
		if other.Extension == def.Extension {
			panic(fmt.Sprintf("extension already registered: %s", def.Extension))
		}
	}

	registry[def.Format] = def
}

// Lookup returns a format definition.
func Lookup(f Format) (FormatDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[f]
	return def, ok
}

// Formats returns all registered formats in declaration order.
func Formats() []FormatDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]FormatDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Format < result[j].Format
	})
	return result
}

// Extensions returns the accepted upload extensions, e.g. for an <input accept>.
func Extensions() []string {
	defs := Formats()
	exts := make([]string, len(defs))
	for i, def := range defs {
		exts[i] = def.Extension
	}
	return exts
}

func lookupExtension(ext string) (FormatDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, def := range registry {
		if def.Extension == ext {
			return def, true
		}
	}
	return FormatDefinition{}, false
}

func init() {
	Register(FormatDefinition{
		Format:    FormatCSV,
		Label:     "CSV",
		Extension: ".csv",
		MIMEType:  MIMETypeCSV,
		Decode:    decodeCSV,
		Encode:    encodeCSV,
	})
	Register(FormatDefinition{
		Format:    FormatXLSX,
		Label:     "Excel",
		Extension: ".xlsx",
		MIMEType:  MIMETypeXLSX,
		Decode:    decodeXLSX,
		Encode:    encodeXLSX,
	})
}
