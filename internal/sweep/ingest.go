package sweep

// UploadedFile is the read-only source of one Table.
type UploadedFile struct {
	Name string
	Data []byte
}

// Size returns the byte length of the upload as received.
func (f UploadedFile) Size() int64 {
	return int64(len(f.Data))
}

// Ingest determines the format from the filename's extension and parses
// the content into a Table. An unrecognised extension fails with
// ErrUnsupportedFormat; malformed content fails with ErrParse.
func Ingest(f UploadedFile) (*Table, Format, error) {
	format, _, err := FormatFromName(f.Name)
	if err != nil {
		return nil, 0, err
	}

	_, comp := splitCompression(f.Name)
	data, err := decompress(f.Data, comp)
	if err != nil {
		return nil, format, parseError(f.Name, err)
	}

	def, ok := Lookup(format)
	if !ok {
		return nil, format, unsupportedFormat(f.Name, format.Extension())
	}

	t, err := def.Decode(data)
	if err != nil {
		return nil, format, parseError(f.Name, err)
	}
	return t, format, nil
}
