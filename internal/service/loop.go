package service

import (
	"context"
	"fmt"
	"time"
)

// duty is one periodic job of the loop.
type duty struct {
	name     string
	interval time.Duration
	last     time.Time
	run      func() error
}

func (s *Service) duties() []*duty {
	iv := s.cfg.Intervals
	return []*duty{
		{name: "monitor_detect", interval: iv.MonitorDetect, run: func() error {
			_, err := s.monitors.Detect()
			return err
		}},
		{name: "layout_check", interval: iv.LayoutCheck, run: func() error {
			if !s.layouts.CheckValidity() {
				s.log.Info("active layout revoked after screen change")
			}
			return nil
		}},
		{name: "rules_apply", interval: iv.RulesApply, run: func() error {
			if _, ok := s.layouts.Active(); !ok {
				return nil
			}
			_, err := s.ApplyRulesNow()
			return err
		}},
		{name: "window_cache", interval: iv.WindowCache, run: s.refreshWindows},
	}
}

// run ticks until ctx is cancelled. Every duty runs on the first tick.
func (s *Service) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Intervals.Tick)
	defer ticker.Stop()

	duties := s.duties()
	s.tick(duties, s.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(duties, s.now())
		}
	}
}

func (s *Service) tick(duties []*duty, now time.Time) {
	for _, d := range duties {
		if !d.last.IsZero() && now.Sub(d.last) < d.interval {
			continue
		}
		d.last = now
		s.runDuty(d)
	}
}

// runDuty keeps a failing or panicking duty from taking down the loop.
func (s *Service) runDuty(d *duty) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			s.log.Error("service duty panicked", err, "duty", d.name)
			s.recordError(d.name, err)
		}
	}()
	if err := d.run(); err != nil {
		s.log.Error("service duty failed", err, "duty", d.name)
		s.recordError(d.name, err)
	}
}
