package codec

import (
	"errors"
	"fmt"
	"io"

	"forcegraph/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the media type written by the codec
func (c *YAMLCodec) ContentType() string {
	return "application/yaml"
}

// yamlPayload accepts "edges" as an alias for "links"
type yamlPayload struct {
	Nodes []domain.Record `yaml:"nodes"`
	Links []domain.Record `yaml:"links"`
	Edges []domain.Record `yaml:"edges,omitempty"`
}

// Parse imports a graph payload from YAML. An empty document is an empty
// payload.
func (c *YAMLCodec) Parse(r io.Reader) (*domain.GraphData, error) {
	var yp yamlPayload
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yp); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	data := domain.NewGraphData()
	data.Nodes = append(data.Nodes, yp.Nodes...)
	data.Links = append(data.Links, yp.Links...)
	data.Links = append(data.Links, yp.Edges...)
	data.Sanitize()

	return data, nil
}

// Export exports a graph payload to YAML
func (c *YAMLCodec) Export(data *domain.GraphData, w io.Writer) error {
	return c.encode(data, w)
}

// ExportSnapshot exports a layout snapshot to YAML
func (c *YAMLCodec) ExportSnapshot(snap *domain.LayoutSnapshot, w io.Writer) error {
	return c.encode(snap, w)
}

func (c *YAMLCodec) encode(v any, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return nil
}
