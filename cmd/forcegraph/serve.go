package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"forcegraph/internal/config"
	"forcegraph/internal/fetch"
	"forcegraph/internal/handler"
	"forcegraph/internal/hub"
	"forcegraph/internal/repository/sqlite"
	"forcegraph/internal/service"
	"forcegraph/internal/watcher"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		dbPath    string
		watchPath string
		dataURL   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the layout server",
		Long: "Run the frame loop and serve the HTTP API and the /events stream.\n" +
			"The last ingested payload is restored from the database on start.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if dbPath != "" {
				cfg.Database.Path = dbPath
			}
			if watchPath != "" {
				cfg.Watch.Path = watchPath
			}
			if dataURL != "" {
				cfg.Graph.DataURL = dataURL
			}
			return runServe(cmd.Context(), cfg, path)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path")
	cmd.Flags().StringVar(&watchPath, "watch", "", "payload file to watch and re-ingest")
	cmd.Flags().StringVar(&dataURL, "data-url", "", "payload URL or path to load on start")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cfgPath string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Println("Starting forcegraph server...")
	if cfgPath != "" {
		log.Printf("Config loaded: %s", cfgPath)
	}

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()
	log.Printf("Database opened: %s", cfg.Database.Path)

	engineCfg := cfg.Graph.Engine()
	if engineCfg.DataURL == "" && cfg.Watch.Path == "" {
		data, source, err := repo.GetGraph(ctx)
		if err != nil {
			log.Printf("Failed to restore graph: %v", err)
		} else if data != nil {
			engineCfg.Data = data
			log.Printf("Restored graph from %q: %s nodes, %s links", source,
				humanize.Comma(int64(len(data.Nodes))), humanize.Comma(int64(len(data.Links))))
		}
	}

	baseDir := "."
	if cfgPath != "" {
		baseDir = filepath.Dir(cfgPath)
	}
	if u := engineCfg.DataURL; u != "" && !fetch.IsRemote(u) && cfg.Fetch.BaseURL == "" {
		log.Printf("Data URL %s resolves against %s", u, baseDir)
	}
	fetchOpts := []fetch.ClientOption{
		fetch.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout.Duration()}),
		fetch.WithRateLimit(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst),
		fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
		fetch.WithBaseDir(baseDir),
	}
	if cfg.Fetch.BaseURL != "" {
		fetchOpts = append(fetchOpts, fetch.WithBaseURL(cfg.Fetch.BaseURL))
	}
	client := fetch.NewClient(fetchOpts...)

	eventBus := service.NewEventBus()
	sseHub := hub.New()

	eventChan := make(chan service.Event, 256)
	eventBus.Subscribe(eventChan)

	svc, err := service.NewLayoutService(eventBus, engineCfg, service.Options{
		Repo:          repo,
		Fetcher:       client,
		FrameInterval: cfg.FrameInterval(),
		KeepSnapshots: cfg.Database.KeepSnapshots,
	})
	if err != nil {
		return fmt.Errorf("create layout service: %w", err)
	}

	mux := http.NewServeMux()
	handler.NewLayoutHandler(svc).Register(mux)
	mux.Handle("GET /events", sseHub)

	server := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: handler.Chain(mux,
			handler.Recover,
			handler.CORS,
			handler.Logger,
		),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svc.Run(gctx)
	})

	g.Go(func() error {
		sseHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case event := <-eventChan:
				sseHub.Broadcast(event)
			case <-gctx.Done():
				return nil
			}
		}
	})

	if cfg.Watch.Path != "" {
		w := watcher.NewPayloadWatcher(cfg.Watch.Path, svc).WithDebounce(cfg.Watch.Debounce.Duration())
		g.Go(func() error {
			if err := watcher.ReloadFile(gctx, cfg.Watch.Path, svc); err != nil {
				log.Printf("Initial load of %s failed: %v", cfg.Watch.Path, err)
			}
			if err := w.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watch %s: %w", cfg.Watch.Path, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		log.Printf("Server listening on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		return nil
	})

	err = g.Wait()
	log.Println("Server stopped")
	return err
}
