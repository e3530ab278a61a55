package engine

import (
	"math"
	"time"

	"forcegraph/internal/domain"
)

// Default configuration values.
const (
	DefaultDimensions   = 3
	DefaultNodeRelSize  = 4
	DefaultLineOpacity  = 0.2
	DefaultCooldownTime = 15 * time.Second
	// UnboundedTicks disables the tick-count cooldown.
	UnboundedTicks = math.MaxInt
)

// Config is the complete configuration surface of the engine.
type Config struct {
	// DataURL is fetched asynchronously whenever it changes.
	DataURL string
	// Data is the inline payload ingested when no fetch result replaces it.
	Data *domain.GraphData
	// Dimensions is the number of simulated axes (1 to 3).
	Dimensions int
	// NodeRelSize is the sphere radius per cube-root unit of node value.
	NodeRelSize float64
	// LineOpacity is the opacity of link lines.
	LineOpacity float64
	// AutoColorBy is the node field used to group uncolored nodes.
	AutoColorBy string
	// Fields maps record keys to normalized fields.
	Fields domain.FieldMapping
	// WarmupTicks are run synchronously at ingestion, before any frame.
	WarmupTicks int
	// CooldownTicks halts stepping once the per-frame step count exceeds it.
	CooldownTicks int
	// CooldownTime halts stepping once this much time has passed since
	// stepping began.
	CooldownTime time.Duration
}

// DefaultConfig returns the default configuration with an empty payload.
func DefaultConfig() Config {
	return Config{
		Data:          domain.NewGraphData(),
		Dimensions:    DefaultDimensions,
		NodeRelSize:   DefaultNodeRelSize,
		LineOpacity:   DefaultLineOpacity,
		Fields:        domain.DefaultFieldMapping(),
		CooldownTicks: UnboundedTicks,
		CooldownTime:  DefaultCooldownTime,
	}
}
