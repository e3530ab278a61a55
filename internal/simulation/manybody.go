package simulation

import (
	"math"

	"forcegraph/internal/domain"
)

// maxTreeDepth bounds subdivision so coincident nodes end up sharing a leaf.
const maxTreeDepth = 32

// cell is a node of the Barnes-Hut tree. Cells live in an arena that is
// reused across ticks; children are arena indexes, -1 when empty.
type cell struct {
	children [8]int
	leaf     bool
	lo, hi   int // leaf bodies are order[lo:hi]
	size     float64
	x, y, z  float64
	strength float64
}

// manyBodyForce applies a constant pairwise charge between all nodes,
// approximating distant groups by their aggregate when they subtend less
// than theta.
type manyBodyForce struct {
	sim     *ForceSimulation
	cells   []cell
	order   []*domain.Node
	scratch []*domain.Node
}

func (f *manyBodyForce) apply(alpha float64) {
	s := f.sim
	if len(s.nodes) < 2 || s.cfg.ManyBodyStrength == 0 {
		return
	}

	f.order = append(f.order[:0], s.nodes...)
	if cap(f.scratch) < len(s.nodes) {
		f.scratch = make([]*domain.Node, len(s.nodes))
	}
	f.scratch = f.scratch[:len(s.nodes)]
	f.cells = f.cells[:0]

	x0, y0, z0, size := f.bounds()
	root := f.build(0, len(f.order), x0, y0, z0, size, 0)

	for _, n := range s.nodes {
		f.visit(root, n, alpha)
	}
}

// bounds returns the origin and edge length of a cube enclosing all nodes.
func (f *manyBodyForce) bounds() (x0, y0, z0, size float64) {
	s := f.sim
	minX, minY, minZ := math.Inf(1), math.Inf(1), math.Inf(1)
	maxX, maxY, maxZ := math.Inf(-1), math.Inf(-1), math.Inf(-1)
	for _, n := range f.order {
		minX, maxX = math.Min(minX, n.X), math.Max(maxX, n.X)
		minY, maxY = math.Min(minY, n.Y), math.Max(maxY, n.Y)
		minZ, maxZ = math.Min(minZ, n.Z), math.Max(maxZ, n.Z)
	}
	size = maxX - minX
	if s.dims > 1 {
		size = math.Max(size, maxY-minY)
	}
	if s.dims > 2 {
		size = math.Max(size, maxZ-minZ)
	}
	return minX, minY, minZ, size
}

func (f *manyBodyForce) build(lo, hi int, x0, y0, z0, size float64, depth int) int {
	s := f.sim
	idx := len(f.cells)
	f.cells = append(f.cells, cell{lo: lo, hi: hi, size: size})
	for i := range f.cells[idx].children {
		f.cells[idx].children[i] = -1
	}

	if hi-lo == 1 || depth >= maxTreeDepth || size <= 0 {
		f.aggregateLeaf(idx)
		return idx
	}

	half := size / 2
	mx, my, mz := x0+half, y0+half, z0+half
	octant := func(n *domain.Node) int {
		o := 0
		if n.X >= mx {
			o |= 1
		}
		if s.dims > 1 && n.Y >= my {
			o |= 2
		}
		if s.dims > 2 && n.Z >= mz {
			o |= 4
		}
		return o
	}

	// counting sort of order[lo:hi] by octant
	var counts [9]int
	for _, n := range f.order[lo:hi] {
		counts[octant(n)+1]++
	}
	for i := 1; i < len(counts); i++ {
		counts[i] += counts[i-1]
	}
	starts := counts
	for _, n := range f.order[lo:hi] {
		o := octant(n)
		f.scratch[lo+starts[o]] = n
		starts[o]++
	}
	copy(f.order[lo:hi], f.scratch[lo:hi])

	var sum, wx, wy, wz, weight float64
	for o := 0; o < 1<<s.dims; o++ {
		clo, chi := lo+counts[o], lo+counts[o+1]
		if clo == chi {
			continue
		}
		cx, cy, cz := x0, y0, z0
		if o&1 != 0 {
			cx = mx
		}
		if o&2 != 0 {
			cy = my
		}
		if o&4 != 0 {
			cz = mz
		}
		child := f.build(clo, chi, cx, cy, cz, half, depth+1)
		f.cells[idx].children[o] = child

		c := f.cells[child]
		w := math.Abs(c.strength)
		sum += c.strength
		weight += w
		wx += w * c.x
		wy += w * c.y
		wz += w * c.z
	}

	parent := &f.cells[idx]
	parent.strength = sum
	if weight > 0 {
		parent.x, parent.y, parent.z = wx/weight, wy/weight, wz/weight
	}
	return idx
}

func (f *manyBodyForce) aggregateLeaf(idx int) {
	c := &f.cells[idx]
	c.leaf = true
	bodies := f.order[c.lo:c.hi]
	for _, n := range bodies {
		c.x += n.X
		c.y += n.Y
		c.z += n.Z
	}
	count := float64(len(bodies))
	c.x, c.y, c.z = c.x/count, c.y/count, c.z/count
	c.strength = f.sim.cfg.ManyBodyStrength * count
}

func (f *manyBodyForce) visit(idx int, n *domain.Node, alpha float64) {
	s := f.sim
	c := &f.cells[idx]
	if c.strength == 0 {
		return
	}
	theta2 := s.cfg.Theta * s.cfg.Theta
	distMin2 := s.cfg.DistanceMin * s.cfg.DistanceMin
	distMax2 := s.cfg.DistanceMax * s.cfg.DistanceMax

	dx, dy, dz := f.delta(c.x, c.y, c.z, n)
	l := dx*dx + dy*dy + dz*dz

	if !c.leaf {
		if c.size*c.size/theta2 < l {
			if l < distMax2 {
				f.push(n, dx, dy, dz, l, c.strength, alpha, distMin2)
			}
			return
		}
		for _, child := range c.children {
			if child >= 0 {
				f.visit(child, n, alpha)
			}
		}
		return
	}

	for _, b := range f.order[c.lo:c.hi] {
		if b == n {
			continue
		}
		dx, dy, dz := f.delta(b.X, b.Y, b.Z, n)
		l := dx*dx + dy*dy + dz*dz
		if l >= distMax2 {
			continue
		}
		f.push(n, dx, dy, dz, l, s.cfg.ManyBodyStrength, alpha, distMin2)
	}
}

// push adds the velocity contribution of a charge at offset (dx, dy, dz).
func (f *manyBodyForce) push(n *domain.Node, dx, dy, dz, l, strength, alpha, distMin2 float64) {
	s := f.sim
	if dx == 0 {
		dx = s.jiggle()
		l += dx * dx
	}
	if s.dims > 1 && dy == 0 {
		dy = s.jiggle()
		l += dy * dy
	}
	if s.dims > 2 && dz == 0 {
		dz = s.jiggle()
		l += dz * dz
	}
	if l < distMin2 {
		l = math.Sqrt(distMin2 * l)
	}
	w := strength * alpha / l
	n.VX += dx * w
	if s.dims > 1 {
		n.VY += dy * w
	}
	if s.dims > 2 {
		n.VZ += dz * w
	}
}

func (f *manyBodyForce) delta(x, y, z float64, n *domain.Node) (dx, dy, dz float64) {
	dx = x - n.X
	if f.sim.dims > 1 {
		dy = y - n.Y
	}
	if f.sim.dims > 2 {
		dz = z - n.Z
	}
	return dx, dy, dz
}
