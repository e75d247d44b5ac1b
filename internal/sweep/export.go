package sweep

import (
	"bytes"
	"fmt"
)

// Export is a serialized table ready to be offered for download.
type Export struct {
	FileName string
	MIMEType string
	Format   Format
	Data     []byte
}

// Reader returns a reader positioned at the start of the data.
func (e *Export) Reader() *bytes.Reader {
	return bytes.NewReader(e.Data)
}

// Size returns the byte length of the export.
func (e *Export) Size() int64 {
	return int64(len(e.Data))
}

// ExportTable serializes t in the target format. originalName is the
// uploaded filename; its extension is swapped for the target's. Encoder
// failures are reported as ErrSerialization.
func ExportTable(t *Table, target Format, originalName string) (*Export, error) {
	def, ok := Lookup(target)
	if !ok {
		return nil, serializationError(originalName, fmt.Errorf("no encoder registered for %s", target))
	}

	var buf bytes.Buffer
	if err := def.Encode(t, &buf); err != nil {
		return nil, serializationError(originalName, err)
	}

	return &Export{
		FileName: OutputName(originalName, target),
		MIMEType: def.MIMEType,
		Format:   target,
		Data:     buf.Bytes(),
	}, nil
}
