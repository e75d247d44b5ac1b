package sweep

import (
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Compression is the compression wrapper around an uploaded file.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGZ
	CompressionBZ2
	CompressionXZ
	CompressionZSTD
)

// MaxDecompressedSize bounds how large a compressed upload may expand to.
var MaxDecompressedSize int64 = 512 << 20

// String returns the name of the compression type.
func (c Compression) String() string {
	switch c {
	case CompressionGZ:
		return "gzip"
	case CompressionBZ2:
		return "bzip2"
	case CompressionXZ:
		return "xz"
	case CompressionZSTD:
		return "zstd"
	default:
		return "none"
	}
}

// Extension returns the file suffix for this compression type.
func (c Compression) Extension() string {
	switch c {
	case CompressionGZ:
		return ".gz"
	case CompressionBZ2:
		return ".bz2"
	case CompressionXZ:
		return ".xz"
	case CompressionZSTD:
		return ".zst"
	default:
		return ""
	}
}

// CompressedExtensions returns the compression suffixes accepted on uploads.
func CompressedExtensions() []string {
	return []string{
		CompressionGZ.Extension(),
		CompressionBZ2.Extension(),
		CompressionXZ.Extension(),
		CompressionZSTD.Extension(),
	}
}

// splitCompression peels a known compression suffix off name.
func splitCompression(name string) (string, Compression) {
	lower := strings.ToLower(name)
	for _, c := range []Compression{CompressionGZ, CompressionBZ2, CompressionXZ, CompressionZSTD} {
		if strings.HasSuffix(lower, c.Extension()) {
			return name[:len(name)-len(c.Extension())], c
		}
	}
	return name, CompressionNone
}

// decompress expands data according to c.
func decompress(data []byte, c Compression) ([]byte, error) {
	if c == CompressionNone {
		return data, nil
	}

	var (
		r       io.Reader
		closeFn func() error
	)
	src := bytes.NewReader(data)

	switch c {
	case CompressionGZ:
		gz, err := gzip.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		r, closeFn = gz, gz.Close
	case CompressionBZ2:
		r = bzip2.NewReader(src)
	case CompressionXZ:
		xr, err := xz.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		r = xr
	case CompressionZSTD:
		dec, err := zstd.NewReader(src)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		r, closeFn = dec, func() error {
			dec.Close()
			return nil
		}
	default:
		return nil, fmt.Errorf("unsupported compression type: %v", c)
	}
	if closeFn != nil {
		defer closeFn()
	}

	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c, err)
	}
	if int64(len(out)) > MaxDecompressedSize {
		return nil, fmt.Errorf("%s: decompressed size exceeds %d bytes", c, MaxDecompressedSize)
	}
	return out, nil
}
