package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gamma-omg/mgmt-knowledge/corpus"
)

// CorpusWatcher reloads the corpus file when it changes on disk. Bursts of
// events are merged; a reload that fails leaves the previous corpus in place.
type CorpusWatcher struct {
	log              *slog.Logger
	path             string
	namespace        string
	store            *corpus.Store
	mergeEventsDelay time.Duration
	onReload         func(ctx context.Context, c *corpus.Corpus)
}

func NewCorpusWatcher(store *corpus.Store, path, namespace string, delay time.Duration, log *slog.Logger) *CorpusWatcher {
	return &CorpusWatcher{
		log:              log.With("component", "watcher", "path", path),
		path:             filepath.Clean(path),
		namespace:        namespace,
		store:            store,
		mergeEventsDelay: delay,
	}
}

// OnReload registers fn to run after each successful reload.
func (w *CorpusWatcher) OnReload(fn func(ctx context.Context, c *corpus.Corpus)) {
	w.onReload = fn
}

// Watch starts watching in the background and returns once the watch is set up.
func (w *CorpusWatcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	// the directory is watched so that a replaced file is still seen
	err = watcher.Add(filepath.Dir(w.path))
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	go w.loop(ctx, watcher)
	return nil
}

func (w *CorpusWatcher) loop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			pending = time.After(w.mergeEventsDelay)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("watch error", "err", err)
		case <-pending:
			pending = nil
			w.reload(ctx)
		}
	}
}

func (w *CorpusWatcher) reload(ctx context.Context) {
	c, err := w.store.LoadFile(w.path, w.namespace)
	if err != nil {
		w.log.Warn("corpus reload failed, keeping previous corpus", "err", err)
		return
	}

	w.log.Info("corpus reloaded", "chunks", c.Size(), "namespaces", c.Namespaces())
	if w.onReload != nil {
		w.onReload(ctx, c)
	}
}
