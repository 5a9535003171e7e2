// Package service runs the background loop that keeps windows on their
// assigned monitors while a layout is active.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1broseidon/screenward/internal/config"
	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
	"github.com/1broseidon/screenward/internal/window"
)

// State is the run state reported by Status.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateError    State = "error"
)

var (
	ErrAlreadyRunning = errors.New("service is already running")
	ErrNotRunning     = errors.New("service is not running")
	ErrLoopBusy       = errors.New("previous service loop has not exited")
)

// Status is a point-in-time view of the service.
type Status struct {
	Status       State      `json:"status"`
	LastRun      *time.Time `json:"last_run"`
	RulesApplied int        `json:"rules_applied"`
	Errors       int        `json:"errors"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Monitors     int        `json:"monitors"`
	ActiveLayout string     `json:"active_layout,omitempty"`
}

// WindowCache is the last window enumeration taken by the loop.
type WindowCache struct {
	Windows   []window.Window `json:"windows"`
	Timestamp time.Time       `json:"timestamp"`
	AgeMS     int64           `json:"age_ms"`
}

type snapshot struct {
	windows []window.Window
	taken   time.Time
}

// Deps are the collaborators a Service drives.
type Deps struct {
	Config   *config.Config
	Monitors *monitor.Manager
	Layouts  *layout.Manager
	Windows  *window.Manager
	Logger   *logging.Logger
}

// Service owns the polling loop and serializes rule application.
type Service struct {
	cfg      *config.Config
	monitors *monitor.Manager
	layouts  *layout.Manager
	windows  *window.Manager
	log      *logging.Logger

	// applyMu guards the rule engine entry point.
	applyMu sync.Mutex

	mu           sync.Mutex
	state        State
	lastRun      time.Time
	rulesApplied int
	errCount     int
	errMsg       string
	cancel       context.CancelFunc
	done         chan struct{}

	cache atomic.Pointer[snapshot]
	now   func() time.Time
}

// New creates a stopped service.
func New(deps Deps) (*Service, error) {
	if deps.Config == nil || deps.Monitors == nil || deps.Layouts == nil || deps.Windows == nil {
		return nil, fmt.Errorf("service: config, monitors, layouts and windows are required")
	}
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Service{
		cfg:      deps.Config,
		monitors: deps.Monitors,
		layouts:  deps.Layouts,
		windows:  deps.Windows,
		log:      log.With("component", "service"),
		state:    StateStopped,
		now:      time.Now,
	}, nil
}

func (s *Service) Monitors() *monitor.Manager { return s.monitors }
func (s *Service) Layouts() *layout.Manager   { return s.layouts }
func (s *Service) Windows() *window.Manager   { return s.windows }

// Start launches the loop. The default layout from settings is activated
// first when no layout is active; failing to activate it is not fatal.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateRunning || s.state == StateStarting {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	// A loop that outlived Stop's timeout still owns the done channel.
	if s.done != nil {
		select {
		case <-s.done:
			s.done = nil
		default:
			s.mu.Unlock()
			return ErrLoopBusy
		}
	}
	s.state = StateStarting
	s.errMsg = ""
	s.mu.Unlock()

	if _, err := s.monitors.Detect(); err != nil {
		s.log.Error("initial monitor detection failed", err)
	}
	s.activateDefault()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	if s.cfg.WatchLayouts {
		if err := s.watchLayouts(loopCtx); err != nil {
			s.log.Warn("layout watcher unavailable", "error", err.Error())
		}
	}

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.state = StateRunning
	s.mu.Unlock()

	go s.run(loopCtx, done)
	s.log.Info("service started")
	return nil
}

func (s *Service) activateDefault() {
	name := s.monitors.Store().DefaultLayout()
	if name == "" {
		return
	}
	if _, active := s.layouts.Active(); active {
		return
	}
	if _, err := s.layouts.Activate(name); err != nil {
		s.log.Warn("could not activate default layout", "layout", name, "error", err.Error())
		return
	}
	s.log.Info("activated default layout", "layout", name)
}

// Stop asks the loop to exit and waits up to the configured stop timeout.
func (s *Service) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.state = StateStopping
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()

	select {
	case <-done:
	case <-time.After(s.cfg.StopTimeout):
		err := fmt.Errorf("service loop did not exit within %s", s.cfg.StopTimeout)
		s.log.Warn("service loop did not stop in time", "timeout", s.cfg.StopTimeout.String())
		s.mu.Lock()
		s.state = StateError
		s.errMsg = err.Error()
		s.cancel = nil
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.state = StateStopped
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	s.log.Info("service stopped")
	return nil
}

// Restart stops the loop if it is running and starts it again.
func (s *Service) Restart(ctx context.Context) error {
	if err := s.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		return err
	}
	return s.Start(ctx)
}

// Running reports whether the loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning
}

// Status reports run state and counters.
func (s *Service) Status() Status {
	s.mu.Lock()
	st := Status{
		Status:       s.state,
		RulesApplied: s.rulesApplied,
		Errors:       s.errCount,
		ErrorMessage: s.errMsg,
	}
	if !s.lastRun.IsZero() {
		t := s.lastRun
		st.LastRun = &t
	}
	s.mu.Unlock()

	st.Monitors = len(s.monitors.ConnectedIDs())
	if info, ok := s.layouts.Active(); ok {
		st.ActiveLayout = info.Name
	}
	return st
}

// ApplyRulesNow runs one rule-application pass. Concurrent callers are
// serialized with the loop.
func (s *Service) ApplyRulesNow() (window.ApplySummary, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()

	summary, err := s.windows.ApplyRules()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = s.now()
	if err != nil {
		s.errCount++
		s.errMsg = err.Error()
		return summary, err
	}
	s.rulesApplied += summary.Applied
	s.errCount += summary.Failed
	return summary, nil
}

// ApplyRuleToWindow drives a single window, serialized with rule passes.
func (s *Service) ApplyRuleToWindow(in WindowRule) (window.RuleResult, error) {
	s.applyMu.Lock()
	defer s.applyMu.Unlock()
	return s.windows.ApplyRuleToWindow(in.Handle, in.MonitorID, in.Maximize, in.Fullscreen)
}

// WindowRule is an ad-hoc rule for one window.
type WindowRule struct {
	Handle     platform.WindowID `json:"hwnd"`
	MonitorID  string            `json:"monitor_id"`
	Maximize   bool              `json:"maximize"`
	Fullscreen bool              `json:"fullscreen"`
}

// UpsertRule adds or updates a rule and, when the layout is active, applies
// rules right away so the change is visible.
func (s *Service) UpsertRule(layoutName string, in layout.RuleInput) (layout.RuleChange, error) {
	change, err := s.layouts.UpsertRule(layoutName, in)
	if err != nil {
		return change, err
	}
	if change.Active {
		if _, err := s.ApplyRulesNow(); err != nil {
			s.log.Warn("apply after rule change failed", "error", err.Error())
		}
	}
	return change, nil
}

// CachedWindows returns the last enumeration, refreshing it when the loop
// has not taken one yet.
func (s *Service) CachedWindows() (WindowCache, error) {
	snap := s.cache.Load()
	if snap == nil {
		if err := s.refreshWindows(); err != nil {
			return WindowCache{}, err
		}
		snap = s.cache.Load()
	}
	return WindowCache{
		Windows:   snap.windows,
		Timestamp: snap.taken,
		AgeMS:     s.now().Sub(snap.taken).Milliseconds(),
	}, nil
}

func (s *Service) refreshWindows() error {
	ws, err := s.windows.Windows()
	if err != nil {
		return err
	}
	s.cache.Store(&snapshot{windows: ws, taken: s.now()})
	return nil
}

func (s *Service) recordError(duty string, err error) {
	s.mu.Lock()
	s.errCount++
	s.errMsg = fmt.Sprintf("%s: %v", duty, err)
	s.mu.Unlock()
}
