package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Watcher fires onChange once per burst of filesystem events touching files
// that match a glob.
type Watcher struct {
	pattern  string
	debounce time.Duration
	onChange func(ctx context.Context)
	logger   *slog.Logger
}

// NewWatcher watches the directories under pattern's static prefix.
func NewWatcher(pattern string, debounce time.Duration, onChange func(ctx context.Context)) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		pattern:  filepath.Clean(pattern),
		debounce: debounce,
		onChange: onChange,
		logger:   slog.Default().With("component", "quote-watcher", "pattern", pattern),
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	base, _ := doublestar.SplitPattern(filepath.ToSlash(w.pattern))
	base = filepath.FromSlash(base)
	recursive := strings.Contains(w.pattern, "**")
	if err := w.addDirs(fw, base, recursive); err != nil {
		return err
	}
	w.logger.Info("watching quote files", "base", base, "recursive", recursive)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if recursive && ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addDirs(fw, ev.Name, true); err != nil {
						w.logger.Warn("watching new directory failed", "dir", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Op == fsnotify.Chmod || !w.matches(ev.Name) {
				continue
			}
			w.logger.Debug("quote file changed", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	ok, err := doublestar.PathMatch(w.pattern, filepath.Clean(path))
	return err == nil && ok
}

func (w *Watcher) addDirs(fw *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		if err := fw.Add(root); err != nil {
			return fmt.Errorf("watching %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}
