package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/eoinhurrell/notegraph/internal/cache"
	"github.com/eoinhurrell/notegraph/internal/graph"
)

// DefaultDebounce coalesces editor autosave bursts per file
const DefaultDebounce = 2 * time.Second

// Config holds watcher settings
type Config struct {
	Root     string        // vault directory to watch
	Debounce time.Duration // per-file debounce window
	Rewarm   bool          // re-run analysis after invalidation
}

// Watcher monitors a vault for markdown changes and evicts the affected
// cache entries. Rapid successive changes to the same file are
// debounced; cache re-warm scans are additionally rate limited so a
// burst of invalidations cannot stampede full rescans.
type Watcher struct {
	config   Config
	cache    *cache.Cache
	analyzer *graph.Analyzer
	fsw      *fsnotify.Watcher
	limiter  *rate.Limiter

	mu       sync.Mutex
	debounce map[string]*time.Timer

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a watcher over the configured root
func New(config Config, c *cache.Cache, analyzer *graph.Analyzer) (*Watcher, error) {
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root: %w", err)
	}
	config.Root = abs

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		config:   config,
		cache:    c,
		analyzer: analyzer,
		fsw:      fsw,
		limiter:  rate.NewLimiter(rate.Every(30*time.Second), 1),
		debounce: make(map[string]*time.Timer),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start begins watching the root tree
func (w *Watcher) Start() error {
	if err := w.addTree(w.config.Root); err != nil {
		return fmt.Errorf("watching %s: %w", w.config.Root, err)
	}
	go w.processEvents()
	log.Printf("notegraph: watching %s", w.config.Root)
	return nil
}

// Stop stops event processing and releases the underlying watcher
func (w *Watcher) Stop() error {
	w.cancel()

	w.mu.Lock()
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
	w.mu.Unlock()

	return w.fsw.Close()
}

// addTree registers the directory and all non-hidden subdirectories
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("notegraph: watch error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return
	}

	// new directories need to be watched too
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				log.Printf("notegraph: watching new directory %s: %v", event.Name, err)
			}
			return
		}
	}

	if !strings.HasSuffix(strings.ToLower(event.Name), ".md") {
		return
	}

	w.debounceEvent(event.Name)
}

// debounceEvent delays handling of a changed file until the burst of
// events for it (editor autosaves, atomic renames) has settled.
func (w *Watcher) debounceEvent(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.config.Debounce, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.invalidate(path)
	})
}

// invalidate evicts cache entries covering the changed file and
// optionally re-warms the analysis for the watched root.
func (w *Watcher) invalidate(path string) {
	removed := w.cache.InvalidateByFile(path)
	if len(removed) > 0 {
		log.Printf("notegraph: %s changed, dropped %d cache entries: %s",
			path, len(removed), strings.Join(removed, ", "))
	}

	if !w.config.Rewarm || w.analyzer == nil {
		return
	}
	if !w.limiter.Allow() {
		return
	}
	if _, err := w.analyzer.Analyze(w.config.Root, graph.DefaultOptions()); err != nil {
		log.Printf("notegraph: re-warming cache for %s: %v", w.config.Root, err)
	}
}
