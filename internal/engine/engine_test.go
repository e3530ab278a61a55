package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"cogentcore.org/core/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forcegraph/internal/domain"
	"forcegraph/internal/scene"
)

// fakeStepper resolves links by ID and moves nodes only through move.
type fakeStepper struct {
	dims       int
	nodes      []*domain.Node
	steps      int
	seeds      int
	convergeAt int
	move       func(step int, nodes []*domain.Node)
}

func (f *fakeStepper) Seed(nodes []*domain.Node, links []*domain.Link, dims int) {
	f.seeds++
	f.steps = 0
	f.dims = dims
	f.nodes = nodes
	byID := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	for _, l := range links {
		l.Source, l.Target = byID[l.SourceID], byID[l.TargetID]
	}
}

func (f *fakeStepper) Step() {
	f.steps++
	if f.move != nil {
		f.move(f.steps, f.nodes)
	}
}

func (f *fakeStepper) Reheat()        { f.steps = 0 }
func (f *fakeStepper) Alpha() float64 { return 1 / float64(f.steps+1) }
func (f *fakeStepper) Converged() bool {
	return f.convergeAt > 0 && f.steps >= f.convergeAt
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeFetcher struct {
	mu       sync.Mutex
	calls    []string
	gates    map[string]chan struct{}
	payloads map[string]*domain.GraphData
	errs     map[string]error
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		gates:    map[string]chan struct{}{},
		payloads: map[string]*domain.GraphData{},
		errs:     map[string]error{},
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*domain.GraphData, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	gate := f.gates[url]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.payloads[url], f.errs[url]
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	engine  *Engine
	scene   *scene.Scene
	camera  *scene.PerspectiveCamera
	stepper *fakeStepper
	clock   *fakeClock
	fetcher *fakeFetcher
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		camera:  scene.NewPerspectiveCamera(math32.Vec3(0, 0, 100), math32.Vec3(0, 0, 0)),
		stepper: &fakeStepper{},
		clock:   &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		fetcher: newFakeFetcher(),
	}
	f.scene = scene.NewScene(f.camera)

	base := []Option{
		WithStepper(f.stepper),
		WithClock(f.clock.now),
		WithFetcher(f.fetcher),
		WithLogger(log.New(io.Discard, "", 0)),
	}
	e, err := New(f.scene, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(e.Dispose)
	f.engine = e
	return f
}

// chain builds a payload with the given node IDs linked in sequence.
func chain(ids ...string) *domain.GraphData {
	g := domain.NewGraphData()
	for i, id := range ids {
		g.AddNode(domain.Record{"id": id, "name": id})
		if i > 0 {
			g.AddLink(domain.Record{"source": ids[i-1], "target": id})
		}
	}
	return g
}

func configWith(data *domain.GraphData) Config {
	cfg := DefaultConfig()
	cfg.Data = data
	return cfg
}

// pump runs frames until cond holds.
func pump(t *testing.T, e *Engine, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		e.StepFrame()
		time.Sleep(time.Millisecond)
	}
}

func TestNewRequiresCamera(t *testing.T) {
	_, err := New(scene.NewScene(nil))
	assert.ErrorIs(t, err, ErrNoCamera)
}

func TestTooltipLifecycle(t *testing.T) {
	f := newFixture(t)
	require.Len(t, f.camera.Widgets(), 1)
	assert.Same(t, f.engine.Tooltip(), f.camera.Widgets()[0])

	f.engine.Dispose()

	assert.Empty(t, f.camera.Widgets())
	assert.Equal(t, StateIdle, f.engine.State())
	assert.ErrorIs(t, f.engine.Ingest(chain("a")), ErrDisposed)
	assert.False(t, f.engine.StepFrame())
	assert.Empty(t, f.engine.RenderFrame())

	assert.NotPanics(t, f.engine.Dispose)
}

func TestStepFrameBeforeIngestion(t *testing.T) {
	f := newFixture(t)

	assert.False(t, f.engine.StepFrame())
	assert.Equal(t, StateIdle, f.engine.State())
	assert.Zero(t, f.stepper.steps)
}

func TestTickBudget(t *testing.T) {
	f := newFixture(t)
	cfg := configWith(chain("a", "b"))
	cfg.CooldownTicks = 5
	require.NoError(t, f.engine.Configure(cfg))

	for i := 1; i <= 6; i++ {
		require.True(t, f.engine.StepFrame(), "frame %d", i)
	}
	assert.Equal(t, StateCooled, f.engine.State())

	assert.False(t, f.engine.StepFrame())
	assert.Equal(t, 6, f.stepper.steps)
	assert.Equal(t, 6, f.engine.Stats().Ticks)
}

func TestTimeBudget(t *testing.T) {
	f := newFixture(t)
	cfg := configWith(chain("a", "b"))
	cfg.CooldownTime = 100 * time.Millisecond
	require.NoError(t, f.engine.Configure(cfg))

	for i := 0; i < 3; i++ {
		f.clock.advance(40 * time.Millisecond)
		require.True(t, f.engine.StepFrame())
	}
	assert.Equal(t, StateCooled, f.engine.State(), "120ms elapsed")

	f.clock.advance(40 * time.Millisecond)
	assert.False(t, f.engine.StepFrame())
	assert.Equal(t, 3, f.stepper.steps)
}

func TestDefaultPolicyStepsUntilTimeBudget(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Configure(configWith(chain("a", "b"))))

	for i := 0; i < 1000; i++ {
		require.True(t, f.engine.StepFrame())
	}
	assert.Equal(t, StateStepping, f.engine.State())

	f.clock.advance(DefaultCooldownTime + time.Millisecond)
	assert.True(t, f.engine.StepFrame())
	assert.Equal(t, StateCooled, f.engine.State())
}

func TestConvergenceHalts(t *testing.T) {
	f := newFixture(t)
	f.stepper.convergeAt = 3
	require.NoError(t, f.engine.Configure(configWith(chain("a", "b"))))

	for f.engine.StepFrame() {
	}

	assert.Equal(t, 3, f.stepper.steps)
	assert.Equal(t, StateCooled, f.engine.State())
}

func TestReingestionRestartsCooledLayout(t *testing.T) {
	f := newFixture(t)
	cfg := configWith(chain("a", "b"))
	cfg.CooldownTicks = 0
	require.NoError(t, f.engine.Configure(cfg))
	require.True(t, f.engine.StepFrame())
	require.Equal(t, StateCooled, f.engine.State())

	require.NoError(t, f.engine.Ingest(chain("c", "d", "e")))

	assert.Equal(t, StateStepping, f.engine.State())
	assert.Zero(t, f.engine.Stats().Ticks)
	assert.Equal(t, 2, f.stepper.seeds)
}

func TestWarmupRunsBeforeFirstFrame(t *testing.T) {
	f := newFixture(t)
	f.stepper.move = func(step int, nodes []*domain.Node) {
		for _, n := range nodes {
			n.X = float64(step)
		}
	}
	cfg := configWith(chain("a", "b"))
	cfg.WarmupTicks = 10
	require.NoError(t, f.engine.Configure(cfg))

	assert.Equal(t, 10, f.stepper.steps)
	assert.Equal(t, StateStepping, f.engine.State())
	assert.Zero(t, f.engine.Stats().Ticks, "warm-up ticks do not count toward the tick budget")

	sphere := f.engine.Index().Sphere(f.engine.Nodes()[0])
	require.NotNil(t, sphere)
	assert.Equal(t, float32(10), sphere.Position.X)
}

func TestSyncCopiesPositions(t *testing.T) {
	nodes, links := domain.Normalize(chain("a", "b"), domain.DefaultFieldMapping(), "")
	group := scene.NewGroup()
	idx := scene.NewFactory(scene.FactoryConfig{NodeRelSize: 4, LineOpacity: 0.2}).Rebuild(group, nodes, links)
	nodes[0].X, nodes[0].Y, nodes[0].Z = 1, 2, 3
	nodes[1].X, nodes[1].Y, nodes[1].Z = 4, 5, 6
	links[0].Source, links[0].Target = nodes[0], nodes[1]

	Sync(idx, nodes, links)

	assert.Equal(t, math32.Vec3(1, 2, 3), idx.Sphere(nodes[0]).Position)
	assert.Equal(t, math32.Vec3(4, 5, 6), idx.Sphere(nodes[1]).Position)
	line := idx.Line(links[0])
	assert.Equal(t, [2]math32.Vector3{math32.Vec3(1, 2, 3), math32.Vec3(4, 5, 6)}, line.Vertices)
	assert.True(t, line.NeedsUpdate)
}

func TestSyncSkipsUnresolvedLinks(t *testing.T) {
	g := chain("a")
	g.AddLink(domain.Record{"source": "a", "target": "ghost"})
	nodes, links := domain.Normalize(g, domain.DefaultFieldMapping(), "")
	idx := scene.NewFactory(scene.FactoryConfig{NodeRelSize: 4}).Rebuild(scene.NewGroup(), nodes, links)
	links[0].Source = nodes[0]

	assert.NotPanics(t, func() { Sync(idx, nodes, links) })
	assert.Equal(t, [2]math32.Vector3{}, idx.Line(links[0]).Vertices)
}

func TestTwoDimensionalLayoutHasZeroDepth(t *testing.T) {
	camera := scene.NewPerspectiveCamera(math32.Vec3(0, 0, 100), math32.Vec3(0, 0, 0))
	host := scene.NewScene(camera)
	e, err := New(host, WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)
	defer e.Dispose()

	cfg := configWith(chain("a", "b", "c", "d"))
	cfg.Dimensions = 2
	require.NoError(t, e.Configure(cfg))
	for i := 0; i < 20; i++ {
		e.StepFrame()
	}

	for _, n := range e.Nodes() {
		assert.Zero(t, e.Index().Sphere(n).Position.Z)
	}
	for _, l := range e.Links() {
		line := e.Index().Line(l)
		assert.Zero(t, line.Vertices[0].Z)
		assert.Zero(t, line.Vertices[1].Z)
	}
}

func TestReingestionDoesNotLeakPrimitives(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Configure(configWith(chain("a", "b", "c"))))
	assert.Equal(t, 5, f.scene.Root().Len())

	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.Ingest(chain("a", "b", "c")))
		assert.Equal(t, 5, f.scene.Root().Len())
	}

	require.NoError(t, f.engine.Ingest(domain.NewGraphData()))
	assert.Zero(t, f.scene.Root().Len())
	assert.Zero(t, f.engine.Stats().Primitives)
	assert.Equal(t, StateStepping, f.engine.State())
}

// marker is a primitive the engine did not create.
type marker struct{}

func (marker) Label() string                       { return "marker" }
func (marker) Intersect(scene.Ray) (float32, bool) { return 0, false }

func TestIngestionKeepsForeignChildrenOut(t *testing.T) {
	f := newFixture(t)
	f.scene.Root().Add(marker{})
	require.Equal(t, 1, f.scene.Root().Len())

	require.NoError(t, f.engine.Configure(configWith(chain("a", "b"))))

	assert.Equal(t, 3, f.scene.Root().Len())
	for _, p := range f.scene.Root().Children() {
		_, isMarker := p.(marker)
		assert.False(t, isMarker, "foreign primitive survived ingestion")

		_, isNode := f.engine.Index().NodeOf(p)
		_, isLink := f.engine.Index().LinkOf(p)
		assert.True(t, isNode || isLink)
	}
}

func TestGazeWorksAfterCooldown(t *testing.T) {
	f := newFixture(t)
	cfg := configWith(chain("hub"))
	cfg.CooldownTicks = 0
	require.NoError(t, f.engine.Configure(cfg))
	for f.engine.StepFrame() {
	}
	require.Equal(t, StateCooled, f.engine.State())

	assert.Equal(t, "hub", f.engine.RenderFrame())
	assert.Equal(t, "hub", f.engine.Tooltip().Text())

	f.camera.SetPose(math32.Vec3(500, 0, 100), math32.Vec3(500, 0, 0))
	assert.Empty(t, f.engine.RenderFrame())
}

func TestAutoColorAppliedOnIngestion(t *testing.T) {
	f := newFixture(t)
	g := domain.NewGraphData()
	g.AddNode(domain.Record{"id": "a", "group": "x"})
	g.AddNode(domain.Record{"id": "b", "group": "y"})
	cfg := configWith(g)
	cfg.AutoColorBy = "group"
	require.NoError(t, f.engine.Configure(cfg))

	palette := domain.PairedPalette()
	nodes := f.engine.Nodes()
	assert.Equal(t, domain.RGBA(palette.At(0)), f.engine.Index().Sphere(nodes[0]).Material.Color)
	assert.Equal(t, domain.RGBA(palette.At(1)), f.engine.Index().Sphere(nodes[1]).Material.Color)
}

func TestLoadLastRequestWins(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.fetcher.gates["one"] = gate
	f.fetcher.payloads["one"] = chain("a")
	f.fetcher.payloads["two"] = chain("x", "y")

	f.engine.Load(context.Background(), "one")
	f.engine.Load(context.Background(), "two")
	pump(t, f.engine, func() bool { return len(f.engine.Nodes()) == 2 })

	close(gate)
	pump(t, f.engine, func() bool { return f.engine.Stats().StaleLoads == 1 })

	assert.Len(t, f.engine.Nodes(), 2)
	assert.Equal(t, "x", f.engine.Nodes()[0].ID)
}

func TestIngestSupersedesPendingLoad(t *testing.T) {
	f := newFixture(t)
	f.fetcher.payloads["remote"] = chain("r1", "r2", "r3")

	f.engine.Load(context.Background(), "remote")
	require.NoError(t, f.engine.Ingest(chain("local")))
	pump(t, f.engine, func() bool { return f.engine.Stats().StaleLoads == 1 })

	require.Len(t, f.engine.Nodes(), 1)
	assert.Equal(t, "local", f.engine.Nodes()[0].ID)
}

func TestConfigureStartsLoadOnURLChange(t *testing.T) {
	f := newFixture(t)
	f.fetcher.payloads["graph.json"] = chain("a", "b")

	cfg := DefaultConfig()
	cfg.DataURL = "graph.json"
	require.NoError(t, f.engine.Configure(cfg))
	assert.Empty(t, f.engine.Nodes(), "the inline payload is ingested first")

	pump(t, f.engine, func() bool { return len(f.engine.Nodes()) == 2 })
	assert.Equal(t, 1, f.fetcher.callCount())

	cfg = f.engine.Config()
	cfg.Dimensions = 2
	require.NoError(t, f.engine.Configure(cfg))
	assert.Len(t, f.engine.Nodes(), 2, "an unchanged URL keeps the fetched payload")
	assert.Equal(t, 1, f.fetcher.callCount())
}

func TestSourceFollowsAppliedPayload(t *testing.T) {
	f := newFixture(t)
	gate := make(chan struct{})
	f.fetcher.gates["graph.json"] = gate
	f.fetcher.payloads["graph.json"] = chain("a", "b")

	cfg := configWith(chain("inline"))
	cfg.DataURL = "graph.json"
	require.NoError(t, f.engine.Configure(cfg))
	assert.Empty(t, f.engine.Source(), "the inline payload is not from the URL")
	assert.Empty(t, f.engine.Snapshot().Source)

	close(gate)
	pump(t, f.engine, func() bool { return len(f.engine.Nodes()) == 2 })
	assert.Equal(t, "graph.json", f.engine.Source())
	assert.Equal(t, "graph.json", f.engine.Snapshot().Source)

	cfg = f.engine.Config()
	cfg.Dimensions = 2
	require.NoError(t, f.engine.Configure(cfg))
	assert.Equal(t, "graph.json", f.engine.Source(), "same payload keeps its source")

	require.NoError(t, f.engine.Ingest(chain("x")))
	assert.Empty(t, f.engine.Source())
}

func TestLoadErrorIsReported(t *testing.T) {
	var reported []error
	f := newFixture(t, WithErrorHandler(func(err error) { reported = append(reported, err) }))
	boom := errors.New("connection refused")
	f.fetcher.errs["bad"] = boom
	require.NoError(t, f.engine.Ingest(chain("a")))

	f.engine.Load(context.Background(), "bad")
	pump(t, f.engine, func() bool { return len(reported) == 1 })

	assert.ErrorIs(t, reported[0], boom)
	assert.Len(t, f.engine.Nodes(), 1, "a failed load leaves the current layout")
}

func TestLoadWithoutFetcher(t *testing.T) {
	var reported error
	e, err := New(scene.NewScene(scene.NewPerspectiveCamera(math32.Vec3(0, 0, 1), math32.Vector3{})),
		WithLogger(log.New(io.Discard, "", 0)),
		WithErrorHandler(func(err error) { reported = err }))
	require.NoError(t, err)
	defer e.Dispose()

	e.Load(context.Background(), "graph.json")

	assert.Error(t, reported)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	f.stepper.move = func(step int, nodes []*domain.Node) {
		for i, n := range nodes {
			n.X, n.Y, n.Z = float64(i), float64(step), 0
		}
	}
	require.NoError(t, f.engine.Configure(configWith(chain("a", "b"))))
	f.engine.StepFrame()
	f.engine.StepFrame()

	snap := f.engine.Snapshot()

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2, snap.Ticks)
	assert.Equal(t, 1, snap.LinkCount)
	assert.Equal(t, 3, snap.Dimensions)
	require.Len(t, snap.Nodes, 2)
	assert.Equal(t, "b", snap.Nodes[1].NodeID)
	assert.Equal(t, 1.0, snap.Nodes[1].X)
	assert.Equal(t, 2.0, snap.Nodes[1].Y)
}

func TestStateNames(t *testing.T) {
	text, err := StateCooled.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "cooled", string(text))
	assert.Equal(t, "unknown", State(42).String())

	var s State
	require.NoError(t, s.UnmarshalText([]byte("stepping")))
	assert.Equal(t, StateStepping, s)
	assert.Error(t, s.UnmarshalText([]byte("melting")))
}

func TestIngestHook(t *testing.T) {
	calls := 0
	f := newFixture(t, WithIngestHook(func() { calls++ }))

	require.NoError(t, f.engine.Configure(configWith(chain("a"))))
	require.NoError(t, f.engine.Ingest(chain("a", "b")))

	assert.Equal(t, 2, calls)
}
