// Package layout loads named layout files, gates them on the live screen
// configuration and resolves their rules to concrete monitors.
package layout

import (
	"encoding/json"
	"fmt"
)

// Orientation of a screen.
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// MatchType selects how a rule's match value is compared with a window.
type MatchType string

const (
	MatchExe         MatchType = "exe"
	MatchWindowTitle MatchType = "window_title"
	MatchProcessPath MatchType = "process_path"
)

// Screen is one required display slot.
type Screen struct {
	DisplayNumber int         `json:"display_number"`
	Orientation   Orientation `json:"orientation"`
	Description   string      `json:"description,omitempty"`
}

// Requirements gate activation on the physical screen configuration.
type Requirements struct {
	TotalScreens int      `json:"total_screens"`
	Screens      []Screen `json:"screens"`
}

// DisplayNumbers lists the declared display slots in file order.
func (r Requirements) DisplayNumbers() []int {
	out := make([]int, 0, len(r.Screens))
	for _, s := range r.Screens {
		out = append(out, s.DisplayNumber)
	}
	return out
}

// Declares reports whether n is one of the declared display slots.
func (r Requirements) Declares(n int) bool {
	for _, s := range r.Screens {
		if s.DisplayNumber == n {
			return true
		}
	}
	return false
}

// Rule places matching windows on a display slot. Fullscreen takes
// precedence over Maximize when both are set.
type Rule struct {
	RuleID        string    `json:"rule_id,omitempty"`
	MatchType     MatchType `json:"match_type"`
	MatchValue    string    `json:"match_value"`
	TargetDisplay int       `json:"target_display"`
	Fullscreen    bool      `json:"fullscreen"`
	Maximize      bool      `json:"maximize"`
}

// Layout is the content of one layout file.
type Layout struct {
	Name               string         `json:"name"`
	Description        string         `json:"description,omitempty"`
	Version            string         `json:"version,omitempty"`
	ScreenRequirements Requirements   `json:"screen_requirements"`
	Rules              []Rule         `json:"rules"`
	Metadata           map[string]any `json:"metadata,omitempty"`
}

// ResolvedRule is a rule whose display slot has been mapped to a monitor id.
type ResolvedRule struct {
	RuleID          string    `json:"rule_id"`
	MatchType       MatchType `json:"match_type"`
	MatchValue      string    `json:"match_value"`
	TargetMonitorID string    `json:"target_monitor_id"`
	Fullscreen      bool      `json:"fullscreen"`
	Maximize        bool      `json:"maximize"`
}

// Parse validates data and decodes it into a Layout.
func Parse(data []byte) (*Layout, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, newError(ErrInvalid, "Invalid JSON in layout file: %v", err)
	}
	if msg, ok := validate(doc); !ok {
		return nil, newError(ErrInvalid, "Invalid layout file: %s", msg)
	}
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, newError(ErrInvalid, "Invalid layout file: %v", err)
	}
	if l.Rules == nil {
		l.Rules = []Rule{}
	}
	return &l, nil
}

func (l *Layout) encode() ([]byte, error) {
	data, err := marshalIndent(l)
	if err != nil {
		return nil, fmt.Errorf("failed to encode layout %q: %w", l.Name, err)
	}
	return data, nil
}
