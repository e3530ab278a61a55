package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"forcegraph/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the media type written by the codec
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

// Parse imports a graph payload from JSON
func (c *JSONCodec) Parse(r io.Reader) (*domain.GraphData, error) {
	data := domain.NewGraphData()
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	data.Sanitize()

	return data, nil
}

// Export exports a graph payload to JSON
func (c *JSONCodec) Export(data *domain.GraphData, w io.Writer) error {
	return c.encode(data, w)
}

// ExportSnapshot exports a layout snapshot to JSON
func (c *JSONCodec) ExportSnapshot(snap *domain.LayoutSnapshot, w io.Writer) error {
	return c.encode(snap, w)
}

func (c *JSONCodec) encode(v any, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
