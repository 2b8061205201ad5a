package server

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/rcliao/eliza/internal/engine"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 250 * time.Millisecond

// Loader builds an engine from the current script.
type Loader func() (*engine.Engine, error)

// Watch reloads the script at path whenever it changes and installs the new
// engine for future sessions. A script that fails to load is logged and the
// previous engine stays. Watch blocks until ctx is done.
func (s *Server) Watch(ctx context.Context, path string, load Loader, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory: editors often replace the file by rename.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	s.log.Info("watching script", zap.String("path", abs))

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.log.Debug("script changed", zap.String("op", event.Op.String()))
			fire = time.After(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			s.reload(load)
		}
	}
}

func (s *Server) reload(load Loader) {
	e, err := load()
	if err != nil {
		s.metrics.Reloads.WithLabelValues("error").Inc()
		s.log.Warn("script reload failed, keeping previous rules", zap.Error(err))
		return
	}
	s.SetEngine(e)
	s.metrics.Reloads.WithLabelValues("ok").Inc()
	s.log.Info("script reloaded", zap.Int("keys", len(e.Rules().Keys)))
}
