package config

import "time"

// RawConfig mirrors Config with optional fields so only keys present in the
// file override the defaults.
type RawConfig struct {
	MonitorsFile *string `yaml:"monitors_file"`
	LayoutsDir   *string `yaml:"layouts_dir"`
	Display      *string `yaml:"display"`
	XAuthority   *string `yaml:"xauthority"`

	Intervals     *RawIntervals  `yaml:"intervals"`
	Settle        *RawSettle     `yaml:"settle"`
	FocusAttempts *int           `yaml:"focus_attempts"`
	StopTimeout   *time.Duration `yaml:"stop_timeout"`
	WatchLayouts  *bool          `yaml:"watch_layouts"`
	ApplyHotkey   *string        `yaml:"apply_hotkey"`

	LogLevel   *string `yaml:"log_level"`
	LogFile    *string `yaml:"log_file"`
	LogConsole *bool   `yaml:"log_console"`
}

type RawIntervals struct {
	Tick          *time.Duration `yaml:"tick"`
	WindowCache   *time.Duration `yaml:"window_cache"`
	MonitorDetect *time.Duration `yaml:"monitor_detect"`
	LayoutCheck   *time.Duration `yaml:"layout_check"`
	RulesApply    *time.Duration `yaml:"rules_apply"`
}

type RawSettle struct {
	Move             *time.Duration `yaml:"move"`
	PreFullscreen    *time.Duration `yaml:"pre_fullscreen"`
	FullscreenWait   *time.Duration `yaml:"fullscreen_wait"`
	FullscreenVerify *time.Duration `yaml:"fullscreen_verify"`
	ToggleOff        *time.Duration `yaml:"toggle_off"`
	FocusAttempt     *time.Duration `yaml:"focus_attempt"`
	FocusRetry       *time.Duration `yaml:"focus_retry"`
	KeyHold          *time.Duration `yaml:"key_hold"`
}

// BuildEffectiveConfig overlays raw onto the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	setString(&cfg.MonitorsFile, raw.MonitorsFile)
	setString(&cfg.LayoutsDir, raw.LayoutsDir)
	setString(&cfg.Display, raw.Display)
	setString(&cfg.XAuthority, raw.XAuthority)

	if iv := raw.Intervals; iv != nil {
		setDuration(&cfg.Intervals.Tick, iv.Tick)
		setDuration(&cfg.Intervals.WindowCache, iv.WindowCache)
		setDuration(&cfg.Intervals.MonitorDetect, iv.MonitorDetect)
		setDuration(&cfg.Intervals.LayoutCheck, iv.LayoutCheck)
		setDuration(&cfg.Intervals.RulesApply, iv.RulesApply)
	}
	if s := raw.Settle; s != nil {
		setDuration(&cfg.Settle.Move, s.Move)
		setDuration(&cfg.Settle.PreFullscreen, s.PreFullscreen)
		setDuration(&cfg.Settle.FullscreenWait, s.FullscreenWait)
		setDuration(&cfg.Settle.FullscreenVerify, s.FullscreenVerify)
		setDuration(&cfg.Settle.ToggleOff, s.ToggleOff)
		setDuration(&cfg.Settle.FocusAttempt, s.FocusAttempt)
		setDuration(&cfg.Settle.FocusRetry, s.FocusRetry)
		setDuration(&cfg.Settle.KeyHold, s.KeyHold)
	}

	if raw.FocusAttempts != nil {
		cfg.FocusAttempts = *raw.FocusAttempts
	}
	setDuration(&cfg.StopTimeout, raw.StopTimeout)
	if raw.WatchLayouts != nil {
		cfg.WatchLayouts = *raw.WatchLayouts
	}
	setString(&cfg.ApplyHotkey, raw.ApplyHotkey)

	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFile, raw.LogFile)
	if raw.LogConsole != nil {
		cfg.LogConsole = *raw.LogConsole
	}
	return cfg
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
