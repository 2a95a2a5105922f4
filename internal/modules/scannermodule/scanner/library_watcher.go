package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/shelfsync/internal/config"
	"github.com/mantonx/shelfsync/internal/logger"
	"github.com/mantonx/shelfsync/internal/utils"
)

// ChangeLog summarises folder churn observed since the last scan.
type ChangeLog struct {
	LastChange     *time.Time `json:"lastChange"`
	FoldersAdded   int        `json:"foldersAdded"`
	FoldersRemoved int        `json:"foldersRemoved"`
	PendingChanges int        `json:"pendingChanges"`
	Watching       []string   `json:"watching"`
}

// LibraryWatcher follows folder creation and removal directly under each
// library root. It does not recurse into media folders.
type LibraryWatcher struct {
	roots   []config.Root
	watcher *fsnotify.Watcher
	log     hclog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.RWMutex
	known      map[string]bool // folder paths currently present
	watching   []string
	lastChange *time.Time
	added      int
	removed    int
}

// NewLibraryWatcher creates a watcher for roots. Call Start to begin.
func NewLibraryWatcher(roots []config.Root) (*LibraryWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &LibraryWatcher{
		roots:   roots,
		watcher: watcher,
		log:     logger.Named("watcher"),
		ctx:     ctx,
		cancel:  cancel,
		known:   make(map[string]bool),
	}, nil
}

// Start watches every existing root and begins processing events. Missing
// roots are skipped with a warning.
func (w *LibraryWatcher) Start() error {
	w.mu.Lock()
	for _, root := range w.roots {
		path := filepath.Clean(root.Path)
		if !utils.IsDir(path) {
			w.log.Warn("library root not found, not watching", "root", path, "type", root.Type)
			continue
		}
		if err := w.watcher.Add(path); err != nil {
			w.log.Warn("failed to watch library root", "root", path, "error", err)
			continue
		}
		w.watching = append(w.watching, path)

		entries, err := os.ReadDir(path)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() && !utils.IsHidden(entry.Name()) {
					w.known[filepath.Join(path, entry.Name())] = true
				}
			}
		}
	}
	w.mu.Unlock()

	w.wg.Add(1)
	go w.watchEvents()

	w.log.Info("library watcher started", "roots", len(w.watching))
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *LibraryWatcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	w.log.Info("library watcher stopped")
	return err
}

func (w *LibraryWatcher) watchEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("library watcher error", "error", err)
		}
	}
}

func (w *LibraryWatcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if utils.IsHidden(name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now().UTC()
	switch {
	case event.Has(fsnotify.Create):
		if !utils.IsDir(event.Name) || w.known[event.Name] {
			return
		}
		w.known[event.Name] = true
		w.added++
		w.lastChange = &now
		w.log.Info("library folder added", "path", event.Name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if !w.known[event.Name] {
			return
		}
		delete(w.known, event.Name)
		w.removed++
		w.lastChange = &now
		w.log.Info("library folder removed", "path", event.Name)
	}
}

// Snapshot returns the current change log.
func (w *LibraryWatcher) Snapshot() ChangeLog {
	w.mu.RLock()
	defer w.mu.RUnlock()

	log := ChangeLog{
		FoldersAdded:   w.added,
		FoldersRemoved: w.removed,
		PendingChanges: w.added + w.removed,
		Watching:       append([]string{}, w.watching...),
	}
	if w.lastChange != nil {
		t := *w.lastChange
		log.LastChange = &t
	}
	return log
}

// MarkScanned clears the pending counters after a folder scan. The last
// change time is kept.
func (w *LibraryWatcher) MarkScanned() {
	w.mu.Lock()
	w.added = 0
	w.removed = 0
	w.mu.Unlock()
}
