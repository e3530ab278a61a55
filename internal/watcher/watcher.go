package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"forcegraph/internal/codec"
	"forcegraph/internal/domain"
)

// DefaultDebounce is the quiet period after the last write before a change
// is reported.
const DefaultDebounce = 500 * time.Millisecond

// Ingester accepts a replacement payload.
type Ingester interface {
	Ingest(ctx context.Context, data *domain.GraphData) error
}

// Watcher watches a file for changes
type Watcher struct {
	path     string
	onChange func(ctx context.Context)
	debounce time.Duration
}

// New creates a new file watcher
func New(path string, onChange func(ctx context.Context)) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		debounce: DefaultDebounce,
	}
}

// NewPayloadWatcher creates a watcher that parses the payload file and hands
// it to ing whenever the file changes. Parse and ingest failures are logged
// and the previous payload stays in place.
func NewPayloadWatcher(path string, ing Ingester) *Watcher {
	return New(path, func(ctx context.Context) {
		if err := ReloadFile(ctx, path, ing); err != nil {
			log.Printf("Failed to reload %s: %v", path, err)
		}
	})
}

// WithDebounce sets the debounce duration
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// Watch starts watching the file for changes.
// It blocks until the context is cancelled or an error occurs.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	// Watch the directory so files replaced by editors are still seen
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	log.Printf("Watching %s for changes", w.path)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(w.debounce)
			}

		case <-timer.C:
			log.Printf("File changed: %s", w.path)
			w.onChange(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReloadFile parses the payload at path with the codec matching its
// extension and ingests it.
func ReloadFile(ctx context.Context, path string, ing Ingester) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open payload: %w", err)
	}
	defer f.Close()

	data, err := codec.ForPath(path).Parse(f)
	if err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	if err := ing.Ingest(ctx, data); err != nil {
		return fmt.Errorf("ingest payload: %w", err)
	}
	log.Printf("Reloaded %s: %d nodes, %d links", path, len(data.Nodes), len(data.Links))
	return nil
}
