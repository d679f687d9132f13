package reference

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kapu/enka-kakao-bot-go/internal/constants"
	"go.uber.org/zap"
)

// Watch reloads the persisted documents when an operator edits them. Events
// are debounced; a document that fails to parse leaves the current data in
// place. Blocks until ctx is cancelled.
func (s *Synchronizer) Watch(ctx context.Context, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = constants.WatcherConfig.Debounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(s.opts.DataDir); err != nil {
		return err
	}

	s.logger.Info("Reference watcher started", zap.String("dir", s.opts.DataDir))

	watched := map[string]bool{
		constants.EnkaConfig.NamesFile:      true,
		constants.EnkaConfig.CharactersFile: true,
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			s.logger.Info("Reference watcher stopped")
			return nil

		case <-fire:
			fire = nil
			if err := s.ReloadLocal(ctx); err != nil {
				s.logger.Warn("Reference reload failed, keeping previous data", zap.Error(err))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !watched[filepath.Base(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("Reference watcher error", zap.Error(watchErr))
		}
	}
}
