package codec

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"forcegraph/internal/domain"
)

// Importer interface for importing graph payloads from various formats
type Importer interface {
	Parse(r io.Reader) (*domain.GraphData, error)
	Format() string
}

// Exporter interface for exporting graph payloads and layouts
type Exporter interface {
	Export(data *domain.GraphData, w io.Writer) error
	ExportSnapshot(snap *domain.LayoutSnapshot, w io.Writer) error
	Format() string
}

// Codec both imports and exports a format
type Codec interface {
	Importer
	Exporter
	ContentType() string
}

// ForFormat returns the codec registered under a format name
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ForPath picks a codec from a file extension or URL path. Unknown
// extensions fall back to JSON.
func ForPath(path string) Codec {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYAMLCodec()
	default:
		return NewJSONCodec()
	}
}

// ForContentType picks a codec from an HTTP Content-Type header. When the
// media type is not recognized, fallback decides by path.
func ForContentType(contentType, fallback string) Codec {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "application/json", "text/json":
			return NewJSONCodec()
		case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
			return NewYAMLCodec()
		}
	}
	return ForPath(fallback)
}
