// Package simulation implements the force-directed layout stepper.
//
// A Stepper is seeded with the nodes and links of one ingestion and then
// advanced one step at a time. ForceSimulation is the default backend: a
// velocity Verlet style integrator with link attraction, many-body repulsion
// (Barnes-Hut approximated) and a centering force, cooled by a decaying
// alpha parameter. It works in one, two or three dimensions.
package simulation

import (
	"math"
	"math/rand"

	"forcegraph/internal/domain"
)

// Stepper advances a force layout. Positions are written directly into the
// seeded nodes; links are resolved to node references on Seed.
type Stepper interface {
	// Seed replaces the simulated node and link sets and reheats.
	Seed(nodes []*domain.Node, links []*domain.Link, dims int)
	// Step advances the layout by one tick.
	Step()
	// Reheat resets alpha to 1.
	Reheat()
	// Alpha returns the current energy.
	Alpha() float64
	// Converged reports whether alpha fell below the minimum.
	Converged() bool
}

// IDFunc returns the identity links use to reference a node.
type IDFunc func(n *domain.Node) string

// IdentityBinder is implemented by steppers whose link resolution can be
// bound to a caller-supplied identity accessor.
type IdentityBinder interface {
	SetNodeID(fn IDFunc)
}

// Config holds the force parameters.
type Config struct {
	LinkDistance     float64
	LinkIterations   int
	ManyBodyStrength float64
	Theta            float64
	DistanceMin      float64
	DistanceMax      float64
	VelocityDecay    float64
	AlphaMin         float64
	AlphaDecay       float64
	AlphaTarget      float64
	InitialRadius    float64
	// Seed feeds the jiggle source used to separate coincident nodes.
	Seed int64
}

// DefaultConfig returns the standard force parameters.
func DefaultConfig() Config {
	return Config{
		LinkDistance:     30,
		LinkIterations:   1,
		ManyBodyStrength: -30,
		Theta:            0.9,
		DistanceMin:      1,
		DistanceMax:      math.Inf(1),
		VelocityDecay:    0.4,
		AlphaMin:         0.001,
		AlphaDecay:       1 - math.Pow(0.001, 1.0/300),
		AlphaTarget:      0,
		InitialRadius:    10,
		Seed:             1,
	}
}

var (
	initialAngleRoll = math.Pi * (3 - math.Sqrt(5))
	initialAngleYaw  = math.Pi * 20 / (9 + math.Sqrt(221))
)

// ForceSimulation is the default Stepper.
type ForceSimulation struct {
	cfg    Config
	dims   int
	alpha  float64
	nodes  []*domain.Node
	links  []*domain.Link
	nodeID IDFunc
	rng    *rand.Rand

	link   linkForce
	charge manyBodyForce
}

// New creates a force simulation with the given parameters.
func New(cfg Config) *ForceSimulation {
	s := &ForceSimulation{
		cfg:    cfg,
		dims:   3,
		alpha:  1,
		nodeID: func(n *domain.Node) string { return n.ID },
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
	s.link.sim = s
	s.charge.sim = s
	return s
}

// SetNodeID sets the identity accessor used to resolve link endpoints.
func (s *ForceSimulation) SetNodeID(fn IDFunc) {
	if fn == nil {
		fn = func(n *domain.Node) string { return n.ID }
	}
	s.nodeID = fn
}

// Seed implements Stepper.
func (s *ForceSimulation) Seed(nodes []*domain.Node, links []*domain.Link, dims int) {
	s.dims = clampDims(dims)
	s.nodes = nodes
	s.links = links
	s.initializeNodes()
	s.link.initialize()
	s.Reheat()
}

// Reheat implements Stepper.
func (s *ForceSimulation) Reheat() {
	s.alpha = 1
}

// Alpha implements Stepper.
func (s *ForceSimulation) Alpha() float64 {
	return s.alpha
}

// Converged implements Stepper.
func (s *ForceSimulation) Converged() bool {
	return s.alpha < s.cfg.AlphaMin
}

// Step implements Stepper.
func (s *ForceSimulation) Step() {
	s.alpha += (s.cfg.AlphaTarget - s.alpha) * s.cfg.AlphaDecay

	s.link.apply(s.alpha)
	s.charge.apply(s.alpha)
	s.center()

	decay := 1 - s.cfg.VelocityDecay
	for _, n := range s.nodes {
		integrate(&n.X, &n.VX, n.FX, decay)
		if s.dims > 1 {
			integrate(&n.Y, &n.VY, n.FY, decay)
		}
		if s.dims > 2 {
			integrate(&n.Z, &n.VZ, n.FZ, decay)
		}
	}
}

func integrate(pos, vel, fixed *float64, decay float64) {
	if fixed != nil {
		*pos = *fixed
		*vel = 0
		return
	}
	*vel *= decay
	*pos += *vel
}

// center translates the nodes so their mean position is the origin.
func (s *ForceSimulation) center() {
	if len(s.nodes) == 0 {
		return
	}
	var sx, sy, sz float64
	for _, n := range s.nodes {
		sx += n.X
		sy += n.Y
		sz += n.Z
	}
	count := float64(len(s.nodes))
	sx, sy, sz = sx/count, sy/count, sz/count
	for _, n := range s.nodes {
		n.X -= sx
		if s.dims > 1 {
			n.Y -= sy
		}
		if s.dims > 2 {
			n.Z -= sz
		}
	}
}

// initializeNodes places unplaced nodes on a phyllotaxis spiral (or sphere)
// and clears coordinates outside the simulated dimensions.
func (s *ForceSimulation) initializeNodes() {
	for i, n := range s.nodes {
		n.Index = i
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if n.FZ != nil {
			n.Z = *n.FZ
		}
		if !n.Placed && !s.pinned(n) {
			s.place(i, n)
		}
		n.Placed = true
		n.VX, n.VY, n.VZ = 0, 0, 0
		if s.dims < 3 {
			n.Z = 0
		}
		if s.dims < 2 {
			n.Y = 0
		}
	}
}

func (s *ForceSimulation) pinned(n *domain.Node) bool {
	switch s.dims {
	case 1:
		return n.FX != nil
	case 2:
		return n.FX != nil && n.FY != nil
	default:
		return n.FX != nil && n.FY != nil && n.FZ != nil
	}
}

func (s *ForceSimulation) place(i int, n *domain.Node) {
	fi := float64(i)
	var radius float64
	switch s.dims {
	case 1:
		radius = s.cfg.InitialRadius * fi
	case 2:
		radius = s.cfg.InitialRadius * math.Sqrt(0.5+fi)
	default:
		radius = s.cfg.InitialRadius * math.Cbrt(0.5+fi)
	}
	roll := fi * initialAngleRoll
	yaw := fi * initialAngleYaw

	var x, y, z float64
	switch s.dims {
	case 1:
		x = radius
	case 2:
		x = radius * math.Cos(roll)
		y = radius * math.Sin(roll)
	default:
		x = radius * math.Sin(roll) * math.Cos(yaw)
		y = radius * math.Cos(roll)
		z = radius * math.Sin(roll) * math.Sin(yaw)
	}
	if n.FX == nil {
		n.X = x
	}
	if n.FY == nil {
		n.Y = y
	}
	if n.FZ == nil {
		n.Z = z
	}
}

// jiggle returns a tiny random offset used to separate coincident points.
func (s *ForceSimulation) jiggle() float64 {
	return (s.rng.Float64() - 0.5) * 1e-6
}

func clampDims(dims int) int {
	switch {
	case dims < 1:
		return 1
	case dims > 3:
		return 3
	default:
		return dims
	}
}
