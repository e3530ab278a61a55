package domain

// FieldMapping names the record keys that carry each normalized field.
type FieldMapping struct {
	ID         string `json:"id_field" yaml:"id"`
	Value      string `json:"val_field" yaml:"value"`
	Name       string `json:"name_field" yaml:"name"`
	Color      string `json:"color_field" yaml:"color"`
	LinkSource string `json:"link_source_field" yaml:"link_source"`
	LinkTarget string `json:"link_target_field" yaml:"link_target"`
}

// DefaultFieldMapping returns the conventional field names.
func DefaultFieldMapping() FieldMapping {
	return FieldMapping{
		ID:         "id",
		Value:      "val",
		Name:       "name",
		Color:      "color",
		LinkSource: "source",
		LinkTarget: "target",
	}
}

// WithDefaults returns a copy with empty field names replaced by defaults.
func (m FieldMapping) WithDefaults() FieldMapping {
	def := DefaultFieldMapping()
	if m.ID == "" {
		m.ID = def.ID
	}
	if m.Value == "" {
		m.Value = def.Value
	}
	if m.Name == "" {
		m.Name = def.Name
	}
	if m.Color == "" {
		m.Color = def.Color
	}
	if m.LinkSource == "" {
		m.LinkSource = def.LinkSource
	}
	if m.LinkTarget == "" {
		m.LinkTarget = def.LinkTarget
	}
	return m
}
