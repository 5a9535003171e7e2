package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/screenward/internal/logging"
)

const appName = "screenward"

// Intervals are the polling cadences of the service loop.
type Intervals struct {
	Tick          time.Duration `yaml:"tick"`
	WindowCache   time.Duration `yaml:"window_cache"`
	MonitorDetect time.Duration `yaml:"monitor_detect"`
	LayoutCheck   time.Duration `yaml:"layout_check"`
	RulesApply    time.Duration `yaml:"rules_apply"`
}

// Settle holds the waits inserted between window operations.
type Settle struct {
	Move             time.Duration `yaml:"move"`
	PreFullscreen    time.Duration `yaml:"pre_fullscreen"`
	FullscreenWait   time.Duration `yaml:"fullscreen_wait"`
	FullscreenVerify time.Duration `yaml:"fullscreen_verify"`
	ToggleOff        time.Duration `yaml:"toggle_off"`
	FocusAttempt     time.Duration `yaml:"focus_attempt"`
	FocusRetry       time.Duration `yaml:"focus_retry"`
	KeyHold          time.Duration `yaml:"key_hold"`
}

// Config is the effective daemon configuration.
type Config struct {
	MonitorsFile string `yaml:"monitors_file"`
	LayoutsDir   string `yaml:"layouts_dir"`

	// X11 session overrides, used when the daemon starts without GUI env.
	Display    string `yaml:"display,omitempty"`
	XAuthority string `yaml:"xauthority,omitempty"`

	Intervals     Intervals     `yaml:"intervals"`
	Settle        Settle        `yaml:"settle"`
	FocusAttempts int           `yaml:"focus_attempts"`
	StopTimeout   time.Duration `yaml:"stop_timeout"`
	WatchLayouts  bool          `yaml:"watch_layouts"`

	// ApplyHotkey is a global key sequence such as "Mod4-Shift-a" that
	// re-applies the active layout. Empty disables it. X11 only.
	ApplyHotkey string `yaml:"apply_hotkey"`

	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
	LogConsole bool   `yaml:"log_console"`
}

// DefaultDir returns the per-user configuration directory.
func DefaultDir() string {
	return userDir(os.UserConfigDir)
}

func userDir(base func() (string, error)) string {
	dir, err := base()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, appName)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		MonitorsFile: filepath.Join(dir, "monitors.json"),
		LayoutsDir:   filepath.Join(dir, "layouts"),
		Intervals: Intervals{
			Tick:          time.Second,
			WindowCache:   2 * time.Second,
			MonitorDetect: 30 * time.Second,
			LayoutCheck:   10 * time.Second,
			RulesApply:    5 * time.Second,
		},
		Settle: Settle{
			Move:             300 * time.Millisecond,
			PreFullscreen:    200 * time.Millisecond,
			FullscreenWait:   1500 * time.Millisecond,
			FullscreenVerify: 500 * time.Millisecond,
			ToggleOff:        600 * time.Millisecond,
			FocusAttempt:     100 * time.Millisecond,
			FocusRetry:       200 * time.Millisecond,
			KeyHold:          50 * time.Millisecond,
		},
		FocusAttempts: 3,
		StopTimeout:   5 * time.Second,
		WatchLayouts:  true,
		LogLevel:      "info",
		LogFile:       filepath.Join(userDir(os.UserCacheDir), appName+".log"),
		LogConsole:    true,
	}
}

// Save writes the configuration as YAML to path.
//
// Comments in an existing file are not preserved.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.MonitorsFile == "" {
		return &ValidationError{Path: "monitors_file", Err: fmt.Errorf("monitors_file is required")}
	}
	if c.LayoutsDir == "" {
		return &ValidationError{Path: "layouts_dir", Err: fmt.Errorf("layouts_dir is required")}
	}

	intervals := []struct {
		path string
		d    time.Duration
	}{
		{"intervals.tick", c.Intervals.Tick},
		{"intervals.window_cache", c.Intervals.WindowCache},
		{"intervals.monitor_detect", c.Intervals.MonitorDetect},
		{"intervals.layout_check", c.Intervals.LayoutCheck},
		{"intervals.rules_apply", c.Intervals.RulesApply},
	}
	for _, iv := range intervals {
		if iv.d <= 0 {
			return &ValidationError{Path: iv.path, Err: fmt.Errorf("interval must be > 0")}
		}
	}

	settle := []struct {
		path string
		d    time.Duration
	}{
		{"settle.move", c.Settle.Move},
		{"settle.pre_fullscreen", c.Settle.PreFullscreen},
		{"settle.fullscreen_wait", c.Settle.FullscreenWait},
		{"settle.fullscreen_verify", c.Settle.FullscreenVerify},
		{"settle.toggle_off", c.Settle.ToggleOff},
		{"settle.focus_attempt", c.Settle.FocusAttempt},
		{"settle.focus_retry", c.Settle.FocusRetry},
		{"settle.key_hold", c.Settle.KeyHold},
	}
	for _, s := range settle {
		if s.d < 0 {
			return &ValidationError{Path: s.path, Err: fmt.Errorf("settle delay must be >= 0")}
		}
	}

	if c.FocusAttempts < 1 {
		return &ValidationError{Path: "focus_attempts", Err: fmt.Errorf("focus_attempts must be >= 1")}
	}
	if c.StopTimeout <= 0 {
		return &ValidationError{Path: "stop_timeout", Err: fmt.Errorf("stop_timeout must be > 0")}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	return nil
}

// ValidationError ties a configuration problem to its YAML path and, when the
// value came from a file, its position.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
