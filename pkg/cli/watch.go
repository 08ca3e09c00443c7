package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/storenest/plugin-cli/pkg/observability"
	"github.com/storenest/plugin-cli/pkg/plugins"
)

// runWatch validates dir once and again after every burst of file changes,
// until interrupted. Rejections are printed and do not end the loop.
func (a *app) runWatch(ctx context.Context, dir string, debounce time.Duration) error {
	s, err := a.openSession(ctx, dir)
	if err != nil {
		return err
	}
	defer s.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := setupWatcher(watcher, dir, s.cfg.Package.Exclude); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, cancel := observability.SignalContext(ctx, s.logger)
	defer cancel()

	validate := func() {
		defer observability.RecoverPanic(s.logger, "watch validation")
		if _, err := a.validateOnce(ctx, s, dir); err != nil {
			fmt.Fprintln(a.stderr, "❌", err)
		}
	}

	validate()
	fmt.Fprintf(a.stdout, "Watching %s for changes (Ctrl+C to stop)\n", dir)

	err = watchLoop(ctx, watcher.Events, watcher.Errors, debounce, func(event fsnotify.Event) bool {
		rel, relErr := filepath.Rel(dir, event.Name)
		if relErr != nil || plugins.IsExcluded(filepath.ToSlash(rel), s.cfg.Package.Exclude) {
			return false
		}
		// Also watch new directories
		if event.Op&fsnotify.Create != 0 {
			if fi, statErr := os.Stat(event.Name); statErr == nil && fi.IsDir() {
				if addErr := watcher.Add(event.Name); addErr != nil {
					s.logger.WithError(addErr).Warnf("Failed to watch %s", event.Name)
				}
			}
		}
		s.logger.Debugf("Changed: %s", event.Name)
		return true
	}, validate, func(err error) {
		s.logger.WithError(err).Warn("Watcher error")
	})

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// setupWatcher recursively adds all non-excluded directories to the watcher
func setupWatcher(watcher *fsnotify.Watcher, root string, exclude []string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, _ := filepath.Rel(root, path); rel != "." && plugins.IsExcluded(filepath.ToSlash(rel), exclude) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
}

// watchLoop calls run once per burst of relevant events, after the events
// have been quiet for debounce. It returns when ctx is done or a channel closes.
func watchLoop(
	ctx context.Context,
	events <-chan fsnotify.Event,
	errs <-chan error,
	debounce time.Duration,
	relevant func(fsnotify.Event) bool,
	run func(),
	onError func(error),
) error {
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !relevant(event) {
				continue
			}
			if pending && !timer.Stop() {
				<-timer.C
			}
			timer.Reset(debounce)
			pending = true
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			onError(err)
		case <-timer.C:
			pending = false
			run()
		}
	}
}
