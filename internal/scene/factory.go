package scene

import (
	"math"

	"forcegraph/internal/domain"
)

const (
	nodeOpacity   = 0.75
	linkColor     = 0xf0f0f0
	sphereSegment = 8
)

// FactoryConfig controls primitive sizing and appearance.
type FactoryConfig struct {
	// NodeRelSize is the sphere radius per cube-root unit of node value.
	NodeRelSize float64
	// LineOpacity is the opacity of the shared link material.
	LineOpacity float64
}

// Factory builds the primitives for an ingested graph.
type Factory struct {
	cfg FactoryConfig
}

// NewFactory creates a factory.
func NewFactory(cfg FactoryConfig) *Factory {
	return &Factory{cfg: cfg}
}

// NodeRadius returns the sphere radius for a node value: the sphere volume
// grows linearly with the value.
func NodeRadius(value, relSize float64) float32 {
	return float32(math.Cbrt(value) * relSize)
}

// Rebuild removes every child of c, whatever created it, then attaches one
// sphere per node and one line per link. Lines start degenerate at the
// origin; the first sync pass gives them their real endpoints.
func (f *Factory) Rebuild(c Container, nodes []*domain.Node, links []*domain.Link) *Index {
	children := c.Children()
	for i := len(children) - 1; i >= 0; i-- {
		c.Remove(children[i])
	}

	idx := newIndex(len(nodes), len(links))

	for _, n := range nodes {
		color := domain.RGBA(n.DisplayColor())
		sphere := &Sphere{
			Name:           n.Name,
			Radius:         NodeRadius(n.Value, f.cfg.NodeRelSize),
			WidthSegments:  sphereSegment,
			HeightSegments: sphereSegment,
			Material: &Material{
				Color:       color,
				Opacity:     nodeOpacity,
				Transparent: true,
			},
		}
		c.Add(sphere)
		idx.addNode(n, sphere)
	}

	lineMaterial := &Material{
		Color:       domain.RGBA(linkColor),
		Opacity:     float32(f.cfg.LineOpacity),
		Transparent: true,
	}
	for _, l := range links {
		line := NewLine(lineMaterial)
		c.Add(line)
		idx.addLink(l, line)
	}

	return idx
}

// Index is the bidirectional association between the records of one
// ingestion and their primitives.
type Index struct {
	spheres map[*domain.Node]*Sphere
	lines   map[*domain.Link]*Line
	nodes   map[Primitive]*domain.Node
	links   map[Primitive]*domain.Link
}

func newIndex(nodeCount, linkCount int) *Index {
	return &Index{
		spheres: make(map[*domain.Node]*Sphere, nodeCount),
		lines:   make(map[*domain.Link]*Line, linkCount),
		nodes:   make(map[Primitive]*domain.Node, nodeCount),
		links:   make(map[Primitive]*domain.Link, linkCount),
	}
}

func (x *Index) addNode(n *domain.Node, s *Sphere) {
	x.spheres[n] = s
	x.nodes[s] = n
}

func (x *Index) addLink(l *domain.Link, ln *Line) {
	x.lines[l] = ln
	x.links[ln] = l
}

// Sphere returns the primitive of a node.
func (x *Index) Sphere(n *domain.Node) *Sphere {
	if x == nil {
		return nil
	}
	return x.spheres[n]
}

// Line returns the primitive of a link.
func (x *Index) Line(l *domain.Link) *Line {
	if x == nil {
		return nil
	}
	return x.lines[l]
}

// NodeOf returns the node a primitive was built for.
func (x *Index) NodeOf(p Primitive) (*domain.Node, bool) {
	if x == nil {
		return nil, false
	}
	n, ok := x.nodes[p]
	return n, ok
}

// LinkOf returns the link a primitive was built for.
func (x *Index) LinkOf(p Primitive) (*domain.Link, bool) {
	if x == nil {
		return nil, false
	}
	l, ok := x.links[p]
	return l, ok
}

// Len returns the number of indexed primitives.
func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.nodes) + len(x.links)
}
