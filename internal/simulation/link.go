package simulation

import (
	"math"

	"forcegraph/internal/domain"
)

// linkForce pulls linked nodes toward a rest distance. Strength is the
// inverse of the smaller endpoint degree and the correction is split
// between the endpoints in proportion to their degree.
type linkForce struct {
	sim       *ForceSimulation
	active    []*domain.Link
	strengths []float64
	bias      []float64
}

// initialize resolves link endpoints against the seeded nodes. Links whose
// identities match no node are left unresolved and ignored.
func (f *linkForce) initialize() {
	s := f.sim
	byID := make(map[string]*domain.Node, len(s.nodes))
	for _, n := range s.nodes {
		byID[s.nodeID(n)] = n
	}

	count := make([]int, len(s.nodes))
	f.active = f.active[:0]
	for i, l := range s.links {
		l.Index = i
		l.Source = byID[l.SourceID]
		l.Target = byID[l.TargetID]
		if !l.Resolved() {
			l.Source, l.Target = nil, nil
			continue
		}
		count[l.Source.Index]++
		count[l.Target.Index]++
		f.active = append(f.active, l)
	}

	f.strengths = make([]float64, len(f.active))
	f.bias = make([]float64, len(f.active))
	for i, l := range f.active {
		cs, ct := count[l.Source.Index], count[l.Target.Index]
		f.bias[i] = float64(cs) / float64(cs+ct)
		f.strengths[i] = 1 / float64(min(cs, ct))
	}
}

func (f *linkForce) apply(alpha float64) {
	s := f.sim
	for k := 0; k < max(1, s.cfg.LinkIterations); k++ {
		for i, l := range f.active {
			src, dst := l.Source, l.Target
			x := nonZero(dst.X+dst.VX-src.X-src.VX, s)
			var y, z float64
			if s.dims > 1 {
				y = nonZero(dst.Y+dst.VY-src.Y-src.VY, s)
			}
			if s.dims > 2 {
				z = nonZero(dst.Z+dst.VZ-src.Z-src.VZ, s)
			}
			dist := math.Sqrt(x*x + y*y + z*z)
			scale := (dist - s.cfg.LinkDistance) / dist * alpha * f.strengths[i]
			x, y, z = x*scale, y*scale, z*scale

			b := f.bias[i]
			dst.VX -= x * b
			src.VX += x * (1 - b)
			if s.dims > 1 {
				dst.VY -= y * b
				src.VY += y * (1 - b)
			}
			if s.dims > 2 {
				dst.VZ -= z * b
				src.VZ += z * (1 - b)
			}
		}
	}
}

func nonZero(v float64, s *ForceSimulation) float64 {
	if v == 0 {
		return s.jiggle()
	}
	return v
}
