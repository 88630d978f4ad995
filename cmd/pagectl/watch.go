package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// watchFixtures calls onChange with the fixture files written under paths
// until ctx is cancelled. Events arriving within watchDebounce of each other
// form one batch, sorted by name, with each file listed once.
func watchFixtures(ctx context.Context, paths []string, onChange func(batch []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range paths {
		dir := p
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(watchDebounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !isFixture(event.Name) || !watched(paths, event.Name) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Fixture watcher error", "err", err)
		case <-timer.C:
			batch := slices.Sorted(maps.Keys(pending))
			clear(pending)
			onChange(batch)
		}
	}
}

// watched reports whether name is one of paths or inside a watched directory.
func watched(paths []string, name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, p := range paths {
		pAbs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if pAbs == abs || pAbs == filepath.Dir(abs) {
			return true
		}
	}
	return false
}
