package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// Config contains watcher configuration
type Config struct {
	Roots    []string
	SkipDirs []string
	// Buffer is the capacity of the fan-in channel.
	Buffer int
}

// DefaultSkipDirs are directories never descended into.
var DefaultSkipDirs = []string{".git"}

// Watcher watches every configured root recursively and fans their events
// into a single channel.
type Watcher struct {
	config Config
	logger *slog.Logger

	events chan Event

	mu       sync.Mutex
	watchers map[string]*fsnotify.Watcher // root -> watcher
	watched  map[string]struct{}          // directories added so far
}

// New creates a watcher for the configured roots. Call Start to begin.
func New(config Config, logger *slog.Logger) *Watcher {
	if config.SkipDirs == nil {
		config.SkipDirs = DefaultSkipDirs
	}
	if config.Buffer <= 0 {
		config.Buffer = 256
	}
	return &Watcher{
		config:   config,
		logger:   logger,
		events:   make(chan Event, config.Buffer),
		watchers: make(map[string]*fsnotify.Watcher),
		watched:  make(map[string]struct{}),
	}
}

// Events returns the fan-in channel. It is closed when Start returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Start adds every root and forwards events until ctx is cancelled or a
// root's watcher stops. It blocks.
func (w *Watcher) Start(ctx context.Context) error {
	defer close(w.events)

	if len(w.config.Roots) == 0 {
		return errors.New("watcher: no roots configured")
	}

	for _, root := range w.config.Roots {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			w.closeAll()
			return fmt.Errorf("creating watcher for %s: %w", root, err)
		}
		w.mu.Lock()
		w.watchers[root] = fw
		w.mu.Unlock()

		if err := w.addRecursive(fw, root); err != nil {
			w.closeAll()
			return fmt.Errorf("watching %s: %w", root, err)
		}
	}

	w.logger.Info("Watching roots",
		"roots", w.config.Roots,
		"directories", w.WatchedCount(),
	)

	g, gctx := errgroup.WithContext(ctx)
	for root, fw := range w.snapshot() {
		root, fw := root, fw
		g.Go(func() error {
			return w.forward(gctx, root, fw)
		})
	}

	go func() {
		<-gctx.Done()
		w.closeAll()
	}()

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// forward translates one fsnotify watcher's output into Events.
func (w *Watcher) forward(ctx context.Context, root string, fw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case fe, ok := <-fw.Events:
			if !ok {
				return ctx.Err()
			}
			ev := translate(fe)
			if ev.Kind == KindCreate {
				w.addIfDir(fw, ev.Path)
			}
			if fe.Has(fsnotify.Remove) || fe.Has(fsnotify.Rename) {
				w.forget(fe.Name)
			}
			if !w.send(ctx, ev) {
				return ctx.Err()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return ctx.Err()
			}
			ev := Event{Kind: KindError, Err: err}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				ev = Event{Kind: KindRescan, Path: root}
			}
			w.logger.Warn("Watcher error", "root", root, "error", err)
			if !w.send(ctx, ev) {
				return ctx.Err()
			}
		}
	}
}

func (w *Watcher) send(ctx context.Context, ev Event) bool {
	select {
	case w.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// translate maps an fsnotify event onto an Event. fsnotify reports a rename
// under the old name; the new name arrives separately as a create.
func translate(fe fsnotify.Event) Event {
	switch {
	case fe.Has(fsnotify.Create):
		return Event{Kind: KindCreate, Path: fe.Name}
	case fe.Has(fsnotify.Write):
		return Event{Kind: KindWrite, Path: fe.Name}
	case fe.Has(fsnotify.Remove):
		return Event{Kind: KindRemove, Path: fe.Name}
	case fe.Has(fsnotify.Rename):
		return Event{Kind: KindNotice, Path: fe.Name}
	case fe.Has(fsnotify.Chmod):
		return Event{Kind: KindChmod, Path: fe.Name}
	default:
		return Event{Kind: KindNotice, Path: fe.Name}
	}
}

// addRecursive adds dir and every subdirectory not listed in SkipDirs.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("Skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.skipped(d.Name()) {
			return filepath.SkipDir
		}
		return w.add(fw, path)
	})
}

func (w *Watcher) addIfDir(fw *fsnotify.Watcher, path string) {
	info, err := os.Lstat(path)
	if err != nil || !info.IsDir() || w.skipped(info.Name()) {
		return
	}
	if err := w.addRecursive(fw, path); err != nil {
		w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
	}
}

func (w *Watcher) add(fw *fsnotify.Watcher, dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.watched[dir]; ok {
		return nil
	}
	if err := fw.Add(dir); err != nil {
		return err
	}
	w.watched[dir] = struct{}{}
	return nil
}

// forget drops dir and everything below it from the watched set, so a
// directory recreated under the same name is added again.
func (w *Watcher) forget(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prefix := dir + string(filepath.Separator)
	for path := range w.watched {
		if path == dir || strings.HasPrefix(path, prefix) {
			delete(w.watched, path)
		}
	}
}

func (w *Watcher) skipped(name string) bool {
	for _, s := range w.config.SkipDirs {
		if name == s {
			return true
		}
	}
	return false
}

// WatchedCount returns the number of directories being watched.
func (w *Watcher) WatchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.watched)
}

func (w *Watcher) snapshot() map[string]*fsnotify.Watcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]*fsnotify.Watcher, len(w.watchers))
	for k, v := range w.watchers {
		out[k] = v
	}
	return out
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for root, fw := range w.watchers {
		if err := fw.Close(); err != nil {
			w.logger.Debug("Closing watcher", "root", root, "error", err)
		}
		delete(w.watchers, root)
	}
}
