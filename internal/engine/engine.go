// Package engine synchronizes a force-directed layout with a 3D scene.
//
// The Engine is driven by its host, one frame at a time:
//
//	eng, err := engine.New(host, engine.WithFetcher(client))
//	eng.Configure(cfg)        // ingests and starts the layout
//	for each frame {
//		eng.StepFrame()       // advance the layout, mirror it into the scene
//		eng.RenderFrame()     // update the gaze tooltip
//	}
//	eng.Dispose()
//
// Every ingestion clears the scene container, rebuilds one primitive per
// node and link, reseeds the simulation at full energy and runs the
// configured warm-up ticks before returning. Stepping then continues once
// per frame until the cooldown policy halts it.
//
// The engine is not safe for concurrent use. Remote payloads are fetched on
// a background goroutine, but the result is only applied from StepFrame or
// RenderFrame, so all engine state is touched from the frame loop alone.
// When loads overlap, the most recently requested payload wins.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cogentcore.org/core/math32"

	"forcegraph/internal/domain"
	"forcegraph/internal/gaze"
	"forcegraph/internal/scene"
	"forcegraph/internal/simulation"
)

var (
	// ErrNoCamera is returned by New when the host scene has no camera.
	ErrNoCamera = errors.New("engine: scene has no camera")
	// ErrDisposed is returned by operations on a disposed engine.
	ErrDisposed = errors.New("engine: disposed")
)

// Fetcher retrieves a remote payload.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*domain.GraphData, error)
}

// Stats describes the current layout.
type Stats struct {
	State      State         `json:"state"`
	Ticks      int           `json:"ticks"`
	Alpha      float64       `json:"alpha"`
	Elapsed    time.Duration `json:"elapsed"`
	Nodes      int           `json:"nodes"`
	Links      int           `json:"links"`
	Primitives int           `json:"primitives"`
	StaleLoads int           `json:"stale_loads"`
}

type loadResult struct {
	generation uint64
	url        string
	data       *domain.GraphData
	err        error
}

// Engine is the layout-to-scene synchronization engine.
type Engine struct {
	cfg       Config
	container scene.Container
	camera    scene.Camera
	tooltip   *scene.Label
	gaze      *gaze.Resolver
	stepper   simulation.Stepper

	nodes  []*domain.Node
	links  []*domain.Link
	index  *scene.Index
	source string

	state   State
	ticks   int
	started time.Time

	fetcher    Fetcher
	generation uint64
	inbox      chan loadResult
	done       chan struct{}
	stale      int
	disposed   bool

	now      func() time.Time
	logger   *log.Logger
	onError  func(error)
	onIngest func()
}

// Option configures an Engine.
type Option func(*Engine)

// WithStepper replaces the default force simulation.
func WithStepper(s simulation.Stepper) Option {
	return func(e *Engine) { e.stepper = s }
}

// WithFetcher sets the client used by Load.
func WithFetcher(f Fetcher) Option {
	return func(e *Engine) { e.fetcher = f }
}

// WithClock replaces time.Now for cooldown accounting.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithErrorHandler sets a callback for asynchronous load failures.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Engine) { e.onError = fn }
}

// WithIngestHook sets a callback run after every ingestion, once the layout
// is stepping.
func WithIngestHook(fn func()) Option {
	return func(e *Engine) { e.onIngest = fn }
}

// New initializes an engine on host. The tooltip is attached to the host
// camera; a host without a camera is an error.
func New(host scene.Host, opts ...Option) (*Engine, error) {
	camera := host.Camera()
	if camera == nil {
		return nil, ErrNoCamera
	}

	e := &Engine{
		cfg:       DefaultConfig(),
		container: host.Container(),
		camera:    camera,
		tooltip:   scene.NewTooltip(),
		inbox:     make(chan loadResult, 8),
		done:      make(chan struct{}),
		now:       time.Now,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stepper == nil {
		e.stepper = simulation.New(simulation.DefaultConfig())
	}

	e.camera.Attach(e.tooltip)
	e.gaze = gaze.New(e.camera, e.container, e.tooltip)
	return e, nil
}

// Configure replaces the configuration and re-ingests the current payload.
// A changed, non-empty DataURL also starts an asynchronous load whose result
// triggers another ingestion when it arrives.
func (e *Engine) Configure(cfg Config) error {
	if e.disposed {
		return ErrDisposed
	}
	prev := e.cfg
	cfg.Fields = cfg.Fields.WithDefaults()
	if cfg.Data == nil {
		cfg.Data = domain.NewGraphData()
	}
	if cfg.Data != prev.Data {
		e.source = ""
	}
	e.cfg = cfg

	if cfg.DataURL != "" && cfg.DataURL != prev.DataURL {
		e.Load(context.Background(), cfg.DataURL)
	}
	e.ingest()
	return nil
}

// Config returns the current configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Ingest replaces the payload and runs a full ingestion cycle. Loads still
// in flight are superseded.
func (e *Engine) Ingest(data *domain.GraphData) error {
	if e.disposed {
		return ErrDisposed
	}
	if data == nil {
		data = domain.NewGraphData()
	}
	e.generation++
	e.cfg.Data = data
	e.source = ""
	e.ingest()
	return nil
}

// Load fetches url in the background. The payload is ingested from the next
// StepFrame or RenderFrame unless a newer Load or Ingest has been requested
// in the meantime.
func (e *Engine) Load(ctx context.Context, url string) {
	if e.disposed {
		return
	}
	e.generation++
	if e.fetcher == nil {
		e.fail(fmt.Errorf("load %s: no fetcher configured", url))
		return
	}

	gen := e.generation
	fetcher, inbox, done := e.fetcher, e.inbox, e.done
	go func() {
		data, err := fetcher.Fetch(ctx, url)
		select {
		case inbox <- loadResult{generation: gen, url: url, data: data, err: err}:
		case <-done:
		}
	}()
}

// ingest rebuilds the scene and reseeds the simulation from e.cfg.Data.
func (e *Engine) ingest() {
	cfg := e.cfg
	nodes, links := domain.Normalize(cfg.Data, cfg.Fields, cfg.AutoColorBy)

	factory := scene.NewFactory(scene.FactoryConfig{
		NodeRelSize: cfg.NodeRelSize,
		LineOpacity: cfg.LineOpacity,
	})
	e.index = factory.Rebuild(e.container, nodes, links)
	e.nodes, e.links = nodes, links

	if b, ok := e.stepper.(simulation.IdentityBinder); ok {
		idField := cfg.Fields.ID
		b.SetNodeID(func(n *domain.Node) string { return n.Data.String(idField) })
	}
	e.stepper.Seed(nodes, links, cfg.Dimensions)
	e.state = StateSeeded

	if cfg.WarmupTicks > 0 {
		e.state = StateWarming
		for i := 0; i < cfg.WarmupTicks; i++ {
			e.stepper.Step()
			Sync(e.index, e.nodes, e.links)
		}
	}

	e.ticks = 0
	e.started = e.now()
	e.state = StateStepping
	e.logger.Printf("Ingested %d nodes and %d links (%dD, %d warm-up ticks)",
		len(nodes), len(links), cfg.Dimensions, cfg.WarmupTicks)
	if e.onIngest != nil {
		e.onIngest()
	}
}

// StepFrame advances the layout by one tick and mirrors it into the scene.
// It returns false once the layout has cooled down (or before anything was
// ingested). The layout cools when the step count exceeds CooldownTicks,
// when the time since stepping began exceeds CooldownTime, or when the
// simulation converges.
func (e *Engine) StepFrame() bool {
	e.poll()
	if e.state != StateStepping {
		return false
	}

	e.stepper.Step()
	e.ticks++
	Sync(e.index, e.nodes, e.links)

	elapsed := e.now().Sub(e.started)
	switch {
	case e.ticks > e.cfg.CooldownTicks:
		e.cool(fmt.Sprintf("tick budget %d exceeded", e.cfg.CooldownTicks))
	case elapsed > e.cfg.CooldownTime:
		e.cool(fmt.Sprintf("time budget %s exceeded", e.cfg.CooldownTime))
	case e.stepper.Converged():
		e.cool("converged")
	}
	return true
}

func (e *Engine) cool(reason string) {
	e.state = StateCooled
	e.logger.Printf("Layout cooled after %d ticks: %s", e.ticks, reason)
}

// RenderFrame resolves the gaze target and returns the tooltip text. It runs
// regardless of the layout state.
func (e *Engine) RenderFrame() string {
	e.poll()
	if e.disposed {
		return ""
	}
	return e.gaze.Resolve()
}

// poll applies load results that have arrived since the last frame.
func (e *Engine) poll() {
	for {
		select {
		case res := <-e.inbox:
			e.apply(res)
		default:
			return
		}
	}
}

func (e *Engine) apply(res loadResult) {
	if e.disposed {
		return
	}
	if res.generation != e.generation {
		e.stale++
		e.logger.Printf("Dropping stale payload from %s", res.url)
		return
	}
	if res.err != nil {
		e.fail(fmt.Errorf("load %s: %w", res.url, res.err))
		return
	}
	if res.data == nil {
		res.data = domain.NewGraphData()
	}
	e.cfg.Data = res.data
	e.source = res.url
	e.ingest()
}

func (e *Engine) fail(err error) {
	e.logger.Printf("Engine error: %v", err)
	if e.onError != nil {
		e.onError(err)
	}
}

// Dispose detaches the tooltip and stops accepting work. Pending loads are
// discarded.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.camera.Detach(e.tooltip)
	close(e.done)
	e.state = StateIdle
}

// Source returns the URL the current payload was loaded from, or "" when it
// was supplied inline. It differs from Config().DataURL while a load is in
// flight.
func (e *Engine) Source() string {
	return e.source
}

// State returns the current layout state.
func (e *Engine) State() State {
	return e.state
}

// Stats returns layout statistics.
func (e *Engine) Stats() Stats {
	s := Stats{
		State:      e.state,
		Ticks:      e.ticks,
		Alpha:      e.stepper.Alpha(),
		Nodes:      len(e.nodes),
		Links:      len(e.links),
		Primitives: e.index.Len(),
		StaleLoads: e.stale,
	}
	if !e.started.IsZero() {
		s.Elapsed = e.now().Sub(e.started)
	}
	return s
}

// Nodes returns the nodes of the current ingestion.
func (e *Engine) Nodes() []*domain.Node {
	return e.nodes
}

// Links returns the links of the current ingestion.
func (e *Engine) Links() []*domain.Link {
	return e.links
}

// Index returns the record/primitive index of the current ingestion.
func (e *Engine) Index() *scene.Index {
	return e.index
}

// Tooltip returns the tooltip widget.
func (e *Engine) Tooltip() *scene.Label {
	return e.tooltip
}

// Snapshot captures the current node positions.
func (e *Engine) Snapshot() *domain.LayoutSnapshot {
	snap := domain.NewLayoutSnapshot(e.nodes, len(e.links), e.cfg.Dimensions)
	snap.Source = e.source
	snap.Ticks = e.ticks
	snap.Alpha = e.stepper.Alpha()
	return snap
}

// Sync copies node positions into their spheres and recomputes the
// endpoints of every resolved link's line. Coordinates the simulation does
// not use are zero.
func Sync(idx *scene.Index, nodes []*domain.Node, links []*domain.Link) {
	for _, n := range nodes {
		if s := idx.Sphere(n); s != nil {
			s.SetPosition(float32(n.X), float32(n.Y), float32(n.Z))
		}
	}
	for _, l := range links {
		ln := idx.Line(l)
		if ln == nil || !l.Resolved() {
			continue
		}
		ln.SetEndpoints(position(l.Source), position(l.Target))
	}
}

func position(n *domain.Node) math32.Vector3 {
	return math32.Vec3(float32(n.X), float32(n.Y), float32(n.Z))
}
