package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 250 * time.Millisecond

// watchLayouts reloads the active layout's rules when its file changes on
// disk. The watcher lives until ctx is cancelled.
func (s *Service) watchLayouts(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch layouts: %w", err)
	}
	if err := watcher.Add(s.layouts.Dir()); err != nil {
		watcher.Close()
		return fmt.Errorf("watch layouts dir: %w", err)
	}
	go s.watchLoop(ctx, watcher)
	return nil
}

func (s *Service) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !s.isActiveLayoutFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					<-timerCh
				}
				timer.Reset(reloadDebounce)
			}
		case <-timerCh:
			timer = nil
			timerCh = nil
			if err := s.layouts.ReloadActive(); err != nil {
				s.log.Warn("active layout reload rejected", "error", err.Error())
				continue
			}
			s.log.Info("reloaded active layout from disk", "file", s.layouts.ActiveFileName())
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("layout watcher error", "error", err.Error())
		}
	}
}

func (s *Service) isActiveLayoutFile(name string) bool {
	active := s.layouts.ActiveFileName()
	return active != "" && filepath.Base(name) == active
}
