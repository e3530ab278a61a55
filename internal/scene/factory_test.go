package scene

import (
	"testing"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forcegraph/internal/domain"
)

type stray struct{}

func (stray) Label() string                  { return "stray" }
func (stray) Intersect(Ray) (float32, bool) { return 0, false }

func normalize(g *domain.GraphData) ([]*domain.Node, []*domain.Link) {
	return domain.Normalize(g, domain.DefaultFieldMapping(), "")
}

func TestRebuildCreatesOnePrimitivePerRecord(t *testing.T) {
	nodes, links := normalize(&domain.GraphData{
		Nodes: []domain.Record{{"id": "a", "name": "A"}, {"id": "b"}},
		Links: []domain.Record{{"source": "a", "target": "b"}},
	})
	group := NewGroup()
	f := NewFactory(FactoryConfig{NodeRelSize: 4, LineOpacity: 0.2})

	idx := f.Rebuild(group, nodes, links)

	assert.Equal(t, 3, group.Len())
	assert.Equal(t, 3, idx.Len())
	for _, n := range nodes {
		s := idx.Sphere(n)
		require.NotNil(t, s)
		back, ok := idx.NodeOf(s)
		assert.True(t, ok)
		assert.Same(t, n, back)
	}
	ln := idx.Line(links[0])
	require.NotNil(t, ln)
	back, ok := idx.LinkOf(ln)
	assert.True(t, ok)
	assert.Same(t, links[0], back)
}

func TestRebuildClearsEveryPreviousChild(t *testing.T) {
	group := NewGroup()
	group.Add(stray{})
	f := NewFactory(FactoryConfig{NodeRelSize: 4, LineOpacity: 0.2})

	for i := 0; i < 3; i++ {
		nodes, links := normalize(&domain.GraphData{
			Nodes: []domain.Record{{"id": "a"}, {"id": "b"}, {"id": "c"}},
			Links: []domain.Record{{"source": "a", "target": "b"}, {"source": "b", "target": "c"}},
		})
		f.Rebuild(group, nodes, links)
		assert.Equal(t, 5, group.Len(), "ingestion %d", i)
	}
	for _, p := range group.Children() {
		_, isStray := p.(stray)
		assert.False(t, isStray, "foreign children are removed too")
	}

	f.Rebuild(group, nil, nil)
	assert.Zero(t, group.Len())
}

func TestSphereAppearance(t *testing.T) {
	nodes, links := normalize(&domain.GraphData{Nodes: []domain.Record{
		{"id": "a", "val": 8, "color": "#ff0000", "name": "A"},
		{"id": "b"},
	}})
	idx := NewFactory(FactoryConfig{NodeRelSize: 4, LineOpacity: 0.2}).Rebuild(NewGroup(), nodes, links)

	a := idx.Sphere(nodes[0])
	assert.InDelta(t, 8, a.Radius, 1e-5, "cbrt(8) * 4")
	assert.Equal(t, "A", a.Label())
	assert.Equal(t, domain.RGBA(0xff0000), a.Material.Color)
	assert.InDelta(t, 0.75, a.Material.Opacity, 1e-6)
	assert.True(t, a.Material.Transparent)

	b := idx.Sphere(nodes[1])
	assert.InDelta(t, 4, b.Radius, 1e-5)
	assert.Empty(t, b.Label())
	assert.Equal(t, domain.RGBA(domain.DefaultNodeColor), b.Material.Color)
}

func TestNodeRadiusIsMonotonic(t *testing.T) {
	prev := NodeRadius(0.001, 4)
	for v := 0.01; v < 1000; v *= 1.7 {
		r := NodeRadius(v, 4)
		assert.GreaterOrEqual(t, r, prev, "value %f", v)
		prev = r
	}
}

func TestLinesShareMaterialAndStartDegenerate(t *testing.T) {
	nodes, links := normalize(&domain.GraphData{
		Nodes: []domain.Record{{"id": "a"}, {"id": "b"}},
		Links: []domain.Record{{"source": "a", "target": "b"}, {"source": "b", "target": "a"}},
	})
	idx := NewFactory(FactoryConfig{NodeRelSize: 4, LineOpacity: 0.35}).Rebuild(NewGroup(), nodes, links)

	l0, l1 := idx.Line(links[0]), idx.Line(links[1])
	assert.Same(t, l0.Material, l1.Material)
	assert.InDelta(t, 0.35, l0.Material.Opacity, 1e-6)
	assert.Equal(t, [2]math32.Vector3{}, l0.Vertices)
	assert.Empty(t, l0.Label())
}

func TestNilIndex(t *testing.T) {
	var idx *Index
	assert.Nil(t, idx.Sphere(nil))
	assert.Nil(t, idx.Line(nil))
	assert.Zero(t, idx.Len())
}
