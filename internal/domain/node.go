package domain

// DefaultNodeColor is used for nodes whose color could not be resolved.
const DefaultNodeColor uint32 = 0xffffaa

// Node is a normalized node record.
type Node struct {
	// Index is the node's position in the ingested node list.
	Index int
	// ID is the identity used to resolve link endpoints.
	ID string
	// Value is the magnitude used to size the node (1 when absent).
	Value float64
	// Name is the display label; empty names are not gaze targets.
	Name string
	// Color is the packed RGB color; valid only when Colored is set.
	Color   uint32
	Colored bool
	// Data is the source record.
	Data Record

	// Simulation-owned state. Coordinates beyond the simulation's
	// dimensionality stay zero.
	X, Y, Z    float64
	VX, VY, VZ float64
	// Fixed coordinates pin the node along that axis when set.
	FX, FY, FZ *float64
	// Placed reports whether X/Y/Z hold a position, either from the record
	// or from the simulation's initial placement.
	Placed bool
}

// NewNodes normalizes node records using the given field mapping.
// Preset "x", "y", "z" coordinates and "fx", "fy", "fz" pins are honored.
func NewNodes(records []Record, fields FieldMapping) []*Node {
	fields = fields.WithDefaults()
	nodes := make([]*Node, 0, len(records))
	for i, rec := range records {
		n := &Node{
			Index: i,
			ID:    rec.String(fields.ID),
			Value: 1,
			Name:  rec.String(fields.Name),
			Data:  rec,
		}
		if v, ok := rec.Float(fields.Value); ok && v != 0 && v == v {
			n.Value = v
		}
		if c, ok := ParseColor(rec[fields.Color]); ok {
			n.Color = c
			n.Colored = true
		}
		if x, ok := rec.Float("x"); ok {
			n.X = x
			n.Y, _ = rec.Float("y")
			n.Z, _ = rec.Float("z")
			n.Placed = true
		}
		n.FX = optionalFloat(rec, "fx")
		n.FY = optionalFloat(rec, "fy")
		n.FZ = optionalFloat(rec, "fz")
		nodes = append(nodes, n)
	}
	return nodes
}

// DisplayColor returns the node color, or DefaultNodeColor when unresolved.
func (n *Node) DisplayColor() uint32 {
	if !n.Colored {
		return DefaultNodeColor
	}
	return n.Color
}

// Position returns the node's coordinates.
func (n *Node) Position() (x, y, z float64) {
	return n.X, n.Y, n.Z
}

func optionalFloat(rec Record, key string) *float64 {
	v, ok := rec.Float(key)
	if !ok {
		return nil
	}
	return &v
}
