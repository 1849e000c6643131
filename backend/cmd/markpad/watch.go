package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounce = 100 * time.Millisecond

// watchFile calls fn with the contents of path now and after every change
// until ctx is done. The parent directory is watched because editors often
// replace files by renaming over them. Errors from fn are logged, not
// fatal, so a broken edit does not end the session.
func watchFile(ctx context.Context, log *slog.Logger, path string, fn func([]byte) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	run := func() {
		src, err := os.ReadFile(abs)
		if err != nil {
			log.Warn("read failed", "path", abs, "error", err)
			return
		}
		if err := fn(src); err != nil {
			log.Warn("render failed", "path", abs, "error", err)
		}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	run()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			run()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "error", err)
		}
	}
}
