package domain

// GraphData is a payload of raw node and link records.
type GraphData struct {
	Nodes []Record `json:"nodes" yaml:"nodes"`
	Links []Record `json:"links" yaml:"links"`
}

// NewGraphData creates an empty payload.
func NewGraphData() *GraphData {
	return &GraphData{
		Nodes: make([]Record, 0),
		Links: make([]Record, 0),
	}
}

// AddNode appends a node record.
func (g *GraphData) AddNode(rec Record) {
	g.Nodes = append(g.Nodes, rec)
}

// AddLink appends a link record.
func (g *GraphData) AddLink(rec Record) {
	g.Links = append(g.Links, rec)
}

// IsEmpty reports whether the payload has no nodes and no links.
func (g *GraphData) IsEmpty() bool {
	return g == nil || (len(g.Nodes) == 0 && len(g.Links) == 0)
}

// Clone returns a copy of g whose records can be read while g is being
// re-normalized. Nested values are shared.
func (g *GraphData) Clone() *GraphData {
	if g == nil {
		return nil
	}
	c := &GraphData{
		Nodes: make([]Record, len(g.Nodes)),
		Links: make([]Record, len(g.Links)),
	}
	for i, rec := range g.Nodes {
		c.Nodes[i] = rec.Clone()
	}
	for i, rec := range g.Links {
		c.Links[i] = rec.Clone()
	}
	return c
}

// Sanitize replaces missing slices and null records with empty ones.
func (g *GraphData) Sanitize() {
	if g.Nodes == nil {
		g.Nodes = make([]Record, 0)
	}
	if g.Links == nil {
		g.Links = make([]Record, 0)
	}
	for i, rec := range g.Nodes {
		if rec == nil {
			g.Nodes[i] = Record{}
		}
	}
	for i, rec := range g.Links {
		if rec == nil {
			g.Links[i] = Record{}
		}
	}
}

// Normalize resolves colors and normalizes the records of g.
// Node and link records are mutated as described by ResolveColors and
// NewLinks.
func Normalize(g *GraphData, fields FieldMapping, autoColorBy string) ([]*Node, []*Link) {
	if g == nil {
		g = NewGraphData()
	}
	fields = fields.WithDefaults()
	ResolveColors(g.Nodes, autoColorBy, fields.Color)
	return NewNodes(g.Nodes, fields), NewLinks(g.Links, fields)
}
