package mcp

import (
	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/window"
)

// LayoutNameInput names a layout by display name or file name.
type LayoutNameInput struct {
	Name string `json:"name" jsonschema:"Layout name or file name, e.g. coding or coding.json"`
}

// AddRuleInput is the input for the add_rule tool.
type AddRuleInput struct {
	Layout        string `json:"layout" jsonschema:"Layout name or file name to edit"`
	MatchType     string `json:"match_type" jsonschema:"How to match windows: exe, window_title or process_path"`
	MatchValue    string `json:"match_value" jsonschema:"Value to match. exe and process_path compare case-insensitively; window_title matches a substring"`
	TargetDisplay int    `json:"target_display" jsonschema:"Display number from screen_config the window belongs on"`
	Maximize      bool   `json:"maximize,omitempty" jsonschema:"Maximize the window on its display"`
	Fullscreen    bool   `json:"fullscreen,omitempty" jsonschema:"Make the window fullscreen. Takes precedence over maximize"`
}

// DeleteRuleInput is the input for the delete_rule tool.
type DeleteRuleInput struct {
	Layout string `json:"layout" jsonschema:"Layout name or file name to edit"`
	RuleID string `json:"rule_id" jsonschema:"Rule id as shown by the layout file"`
}

// StatusOutput flattens service.Status for structured tool output.
type StatusOutput struct {
	Status       string `json:"status"`
	LastRun      string `json:"last_run,omitempty"`
	RulesApplied int    `json:"rules_applied"`
	Errors       int    `json:"errors"`
	ErrorMessage string `json:"error_message,omitempty"`
	Monitors     int    `json:"monitors"`
	ActiveLayout string `json:"active_layout,omitempty"`
}

type MonitorInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	X             int    `json:"x"`
	Y             int    `json:"y"`
	IsPrimary     bool   `json:"is_primary"`
	Connected     bool   `json:"connected"`
	FirstDetected string `json:"first_detected,omitempty"`
}

func monitorInfo(m monitor.Status) MonitorInfo {
	return MonitorInfo{
		ID:            m.ID,
		Name:          m.Name,
		Width:         m.Width,
		Height:        m.Height,
		X:             m.X,
		Y:             m.Y,
		IsPrimary:     m.IsPrimary,
		Connected:     m.Connected,
		FirstDetected: m.FirstDetected,
	}
}

type MonitorsOutput struct {
	Monitors []MonitorInfo `json:"monitors"`
}

type LayoutsOutput struct {
	Layouts []layout.Info `json:"layouts"`
}

type DeactivateOutput struct {
	Layout string `json:"layout"`
}

type WindowsOutput struct {
	Windows []window.Window `json:"windows"`
	AgeMS   int64           `json:"age_ms"`
}

type DeleteRuleOutput struct {
	RuleID string `json:"rule_id"`
	// Active is set when the deleted rule was removed from the active layout.
	Active bool `json:"active"`
}

// orEmpty keeps nil slices from encoding as null in structured output.
func orEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}

type ScreenConfigOutput struct {
	Screens []layout.ScreenConfig `json:"screens"`
	Summary string                `json:"summary"`
}
