// Package window enumerates top-level windows and drives them onto their
// target monitors and chrome states.
package window

import (
	"errors"
	"time"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
)

// MarkerTitle marks the window switcher's own windows so they are never listed.
const MarkerTitle = "__SCREENWARD_WINDOW_SWITCHER_MARKER__"

// ErrMonitorNotConnected is returned when a rule targets a monitor that the
// latest detection pass did not see.
var ErrMonitorNotConnected = errors.New("target monitor is not connected")

// Window describes a top-level window as observed in one enumeration pass.
type Window struct {
	Handle         platform.WindowID `json:"hwnd"`
	Title          string            `json:"title"`
	ExeName        string            `json:"exe_name"`
	AppDisplayName string            `json:"app_display_name"`
	ProcessPath    string            `json:"process_path"`
	ClassName      string            `json:"class_name"`
	PID            int               `json:"pid"`
	IsSystem       bool              `json:"is_system"`
	IsUWP          bool              `json:"is_uwp"`
	IsMinimized    bool              `json:"is_minimized"`
	IsMaximized    bool              `json:"is_maximized"`
	IsFullscreen   bool              `json:"is_fullscreen"`
	Position       platform.Rect     `json:"position"`
	MonitorID      string            `json:"monitor_id,omitempty"`
}

// Target returns the fields rules match against.
func (w Window) Target() layout.Target {
	return layout.Target{ExeName: w.ExeName, Title: w.Title, ProcessPath: w.ProcessPath}
}

// Monitors is the slice of the monitor manager the engine needs.
type Monitors interface {
	Detect() ([]string, error)
	IsConnected(id string) bool
	ConnectedMonitor(id string) (monitor.Connected, bool)
	ByPosition(x, y int) (string, bool)
}

// RuleSource yields the rules of the active layout.
type RuleSource interface {
	ActiveRules() []layout.ResolvedRule
}

// Settle holds the waits between window operations.
type Settle struct {
	Move             time.Duration
	PreFullscreen    time.Duration
	FullscreenWait   time.Duration
	FullscreenVerify time.Duration
	ToggleOff        time.Duration
	FocusAttempt     time.Duration
	FocusRetry       time.Duration
	KeyHold          time.Duration
	FocusAttempts    int
}

// DefaultSettle returns the delays tuned against common desktop applications.
func DefaultSettle() Settle {
	return Settle{
		Move:             300 * time.Millisecond,
		PreFullscreen:    200 * time.Millisecond,
		FullscreenWait:   1500 * time.Millisecond,
		FullscreenVerify: 500 * time.Millisecond,
		ToggleOff:        600 * time.Millisecond,
		FocusAttempt:     100 * time.Millisecond,
		FocusRetry:       200 * time.Millisecond,
		KeyHold:          50 * time.Millisecond,
		FocusAttempts:    3,
	}
}

// Options configure a Manager.
type Options struct {
	Settle Settle
	Logger *logging.Logger
	// ProcessPath resolves a pid to its executable path. Defaults to gopsutil.
	ProcessPath func(pid int) (string, error)
	// Sleep defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Manager is the rule engine over one window-system backend.
type Manager struct {
	backend  platform.Backend
	monitors Monitors
	rules    RuleSource
	settle   Settle
	log      *logging.Logger

	processPath func(pid int) (string, error)
	sleep       func(time.Duration)
}

// NewManager wires the engine.
func NewManager(backend platform.Backend, monitors Monitors, rules RuleSource, opts Options) *Manager {
	m := &Manager{
		backend:     backend,
		monitors:    monitors,
		rules:       rules,
		settle:      opts.Settle,
		log:         opts.Logger,
		processPath: opts.ProcessPath,
		sleep:       opts.Sleep,
	}
	if m.log == nil {
		m.log = logging.Nop()
	}
	m.log = m.log.With("component", "window_manager")
	if m.processPath == nil {
		m.processPath = processExe
	}
	if m.sleep == nil {
		m.sleep = time.Sleep
	}
	if m.settle.FocusAttempts < 1 {
		m.settle.FocusAttempts = 1
	}
	return m
}

func (m *Manager) wait(d time.Duration) {
	if d > 0 {
		m.sleep(d)
	}
}
