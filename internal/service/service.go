package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cogentcore.org/core/math32"

	"forcegraph/internal/domain"
	"forcegraph/internal/engine"
	"forcegraph/internal/repository"
	"forcegraph/internal/scene"
	"forcegraph/internal/simulation"
)

// ErrStopped is returned by requests made after the frame loop has exited.
var ErrStopped = errors.New("layout service stopped")

// Default camera pose for new services.
var (
	DefaultCameraPosition = math32.Vec3(0, 0, 250)
	DefaultCameraTarget   = math32.Vec3(0, 0, 0)
)

// FramePayload is published with every stepped frame.
type FramePayload struct {
	Tick  int                   `json:"tick"`
	Alpha float64               `json:"alpha"`
	Nodes []domain.NodePosition `json:"nodes"`
}

// TooltipPayload is published when the gaze target changes.
type TooltipPayload struct {
	Text string `json:"text"`
}

// ErrorPayload is published for asynchronous failures.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Options configures a LayoutService.
type Options struct {
	// Repo stores snapshots and the current payload. Optional.
	Repo repository.Repository
	// Fetcher loads remote payloads. Optional.
	Fetcher engine.Fetcher
	// Stepper replaces the default force simulation. Optional.
	Stepper simulation.Stepper
	// Clock replaces time.Now for cooldown accounting. Optional.
	Clock func() time.Time
	// FrameInterval is the frame loop period.
	FrameInterval time.Duration
	// KeepSnapshots bounds the stored snapshots; zero keeps all of them.
	KeepSnapshots int
}

// LayoutService runs the layout engine on a frame loop.
type LayoutService struct {
	engine   *engine.Engine
	camera   *scene.PerspectiveCamera
	host     *scene.Scene
	repo     repository.Repository
	eventBus *EventBus
	interval time.Duration
	keep     int

	cmds    chan func()
	stopped chan struct{}

	lastTooltip string
}

// NewLayoutService creates the service and performs the initial ingestion
// of cfg. The frame loop starts with Run.
func NewLayoutService(eventBus *EventBus, cfg engine.Config, opts Options) (*LayoutService, error) {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = time.Second / 60
	}

	s := &LayoutService{
		camera:   scene.NewPerspectiveCamera(DefaultCameraPosition, DefaultCameraTarget),
		repo:     opts.Repo,
		eventBus: eventBus,
		interval: opts.FrameInterval,
		keep:     opts.KeepSnapshots,
		cmds:     make(chan func()),
		stopped:  make(chan struct{}),
	}
	s.host = scene.NewScene(s.camera)

	engineOpts := []engine.Option{
		engine.WithErrorHandler(s.onError),
		engine.WithIngestHook(s.onIngest),
	}
	if opts.Fetcher != nil {
		engineOpts = append(engineOpts, engine.WithFetcher(opts.Fetcher))
	}
	if opts.Stepper != nil {
		engineOpts = append(engineOpts, engine.WithStepper(opts.Stepper))
	}
	if opts.Clock != nil {
		engineOpts = append(engineOpts, engine.WithClock(opts.Clock))
	}

	eng, err := engine.New(s.host, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	s.engine = eng

	if err := eng.Configure(cfg); err != nil {
		return nil, fmt.Errorf("configure engine: %w", err)
	}

	return s, nil
}

// Run drives the frame loop until ctx is cancelled. The engine is disposed
// on return.
func (s *LayoutService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.stopped)
	defer s.engine.Dispose()

	log.Printf("Layout loop running at %s per frame", s.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("Layout loop stopped")
			return nil
		case fn := <-s.cmds:
			fn()
		case <-ticker.C:
			s.Frame()
		}
	}
}

// Frame runs one step and one gaze pass and publishes the results. It must
// only be called from the goroutine that owns the engine.
func (s *LayoutService) Frame() {
	before := s.engine.State()
	stepped := s.engine.StepFrame()

	if stepped {
		s.publishFrame()
	}
	if before != engine.StateCooled && s.engine.State() == engine.StateCooled {
		s.onCooled()
	}

	if text := s.engine.RenderFrame(); text != s.lastTooltip {
		s.lastTooltip = text
		s.eventBus.Publish(Event{Type: EventTooltip, Payload: TooltipPayload{Text: text}})
	}
}

// do executes fn on the frame loop goroutine and waits for it to finish.
func (s *LayoutService) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	cmd := func() {
		defer close(done)
		fn()
	}

	select {
	case s.cmds <- cmd:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Graph returns a copy of the current payload. The engine rewrites the
// payload's records on every ingestion, so callers never see the live one.
func (s *LayoutService) Graph(ctx context.Context) (*domain.GraphData, error) {
	var data *domain.GraphData
	err := s.do(ctx, func() {
		data = s.engine.Config().Data.Clone()
	})
	return data, err
}

// Ingest replaces the payload.
func (s *LayoutService) Ingest(ctx context.Context, data *domain.GraphData) error {
	var ingestErr error
	if err := s.do(ctx, func() {
		ingestErr = s.engine.Ingest(data)
	}); err != nil {
		return err
	}
	return ingestErr
}

// Reload fetches url in the background, or the configured data URL when url
// is empty.
func (s *LayoutService) Reload(ctx context.Context, url string) error {
	var reloadErr error
	err := s.do(ctx, func() {
		if url == "" {
			url = s.engine.Config().DataURL
		}
		if url == "" {
			reloadErr = errors.New("no data URL configured")
			return
		}
		s.engine.Load(context.Background(), url)
	})
	if err != nil {
		return err
	}
	return reloadErr
}

// Config returns the engine configuration with a copy of the payload.
func (s *LayoutService) Config(ctx context.Context) (engine.Config, error) {
	var cfg engine.Config
	err := s.do(ctx, func() {
		cfg = s.engine.Config()
		cfg.Data = cfg.Data.Clone()
	})
	return cfg, err
}

// Configure replaces the engine configuration and re-ingests. A nil payload
// keeps the current one.
func (s *LayoutService) Configure(ctx context.Context, cfg engine.Config) error {
	var configErr error
	err := s.do(ctx, func() {
		if cfg.Data == nil {
			cfg.Data = s.engine.Config().Data
		}
		configErr = s.engine.Configure(cfg)
	})
	if err != nil {
		return err
	}
	if configErr != nil {
		return configErr
	}

	s.eventBus.Publish(Event{Type: EventConfigUpdated, Payload: map[string]any{
		"data_url":   cfg.DataURL,
		"dimensions": cfg.Dimensions,
	}})
	return nil
}

// SetCamera moves the camera.
func (s *LayoutService) SetCamera(ctx context.Context, position, target math32.Vector3) error {
	return s.do(ctx, func() {
		s.camera.SetPose(position, target)
	})
}

// Tooltip resolves the gaze target immediately and returns the tooltip text.
func (s *LayoutService) Tooltip(ctx context.Context) (string, error) {
	var text string
	err := s.do(ctx, func() {
		text = s.engine.RenderFrame()
	})
	return text, err
}

// Stats returns layout statistics.
func (s *LayoutService) Stats(ctx context.Context) (engine.Stats, error) {
	var stats engine.Stats
	err := s.do(ctx, func() {
		stats = s.engine.Stats()
	})
	return stats, err
}

// TakeSnapshot captures the current positions and stores them when a
// repository is configured.
func (s *LayoutService) TakeSnapshot(ctx context.Context) (*domain.LayoutSnapshot, error) {
	var snap *domain.LayoutSnapshot
	if err := s.do(ctx, func() {
		snap = s.engine.Snapshot()
	}); err != nil {
		return nil, err
	}
	if err := s.saveSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ListSnapshots returns stored snapshot summaries, newest first.
func (s *LayoutService) ListSnapshots(ctx context.Context, limit int) ([]domain.SnapshotSummary, error) {
	if s.repo == nil {
		return []domain.SnapshotSummary{}, nil
	}
	return s.repo.ListSnapshots(ctx, limit)
}

// GetSnapshot returns a stored snapshot.
func (s *LayoutService) GetSnapshot(ctx context.Context, id string) (*domain.LayoutSnapshot, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, repository.ErrNotFound)
	}
	snap, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, repository.ErrNotFound)
	}
	return snap, nil
}

// DeleteSnapshot removes a stored snapshot.
func (s *LayoutService) DeleteSnapshot(ctx context.Context, id string) error {
	if s.repo == nil {
		return fmt.Errorf("snapshot %s: %w", id, repository.ErrNotFound)
	}
	if err := s.repo.DeleteSnapshot(ctx, id); err != nil {
		return err
	}
	s.eventBus.Publish(Event{Type: EventSnapshotDeleted, Payload: map[string]string{"id": id}})
	return nil
}

func (s *LayoutService) publishFrame() {
	stats := s.engine.Stats()
	nodes := s.engine.Nodes()
	positions := make([]domain.NodePosition, 0, len(nodes))
	for _, n := range nodes {
		x, y, z := n.Position()
		positions = append(positions, *domain.NewNodePosition(n.ID, x, y, z))
	}
	s.eventBus.Publish(Event{Type: EventFrame, Payload: FramePayload{
		Tick:  stats.Ticks,
		Alpha: stats.Alpha,
		Nodes: positions,
	}})
}

func (s *LayoutService) onCooled() {
	stats := s.engine.Stats()
	s.eventBus.Publish(Event{Type: EventCooled, Payload: stats})

	if err := s.saveSnapshot(context.Background(), s.engine.Snapshot()); err != nil {
		log.Printf("Failed to save snapshot: %v", err)
	}
}

func (s *LayoutService) onIngest() {
	stats := s.engine.Stats()
	s.eventBus.Publish(Event{Type: EventIngested, Payload: stats})

	if s.repo == nil {
		return
	}
	data := s.engine.Config().Data
	if err := s.repo.SaveGraph(context.Background(), s.engine.Source(), data); err != nil {
		log.Printf("Failed to persist graph: %v", err)
	}
}

func (s *LayoutService) onError(err error) {
	s.eventBus.Publish(Event{Type: EventError, Payload: ErrorPayload{Message: err.Error()}})
}

func (s *LayoutService) saveSnapshot(ctx context.Context, snap *domain.LayoutSnapshot) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if s.keep > 0 {
		if _, err := s.repo.PruneSnapshots(ctx, s.keep); err != nil {
			log.Printf("Failed to prune snapshots: %v", err)
		}
	}
	s.eventBus.Publish(Event{Type: EventSnapshotSaved, Payload: snap.Summary()})
	return nil
}
