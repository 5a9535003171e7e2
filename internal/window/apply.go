package window

import (
	"fmt"
	"strings"

	"github.com/1broseidon/screenward/internal/layout"
)

// Detail results recorded in ApplySummary.Details.
const (
	ResultApplied          = "applied"
	ResultSkippedNoMonitor = "skipped_no_monitor"
	ResultSkippedNoWindow  = "skipped_no_window"
	ResultError            = "error"
)

// Detail is one line of a rule-application report.
type Detail struct {
	RuleID     string   `json:"rule_id"`
	Result     string   `json:"result"`
	Message    string   `json:"message,omitempty"`
	Window     string   `json:"window,omitempty"`
	Operations []string `json:"operations,omitempty"`
}

// ApplySummary aggregates one rule-application pass. Counts let a caller tell
// "nothing to do" from "attempted and failed".
type ApplySummary struct {
	Applied          int      `json:"applied"`
	SkippedNoMonitor int      `json:"skipped_no_monitor"`
	SkippedNoWindow  int      `json:"skipped_no_window"`
	Failed           int      `json:"failed"`
	Details          []Detail `json:"details"`
}

// ApplyRules runs one pass of the active layout's rules over every window.
// Only a failure to enumerate windows is returned as an error; per-window
// failures are counted in the summary.
func (m *Manager) ApplyRules() (ApplySummary, error) {
	summary := ApplySummary{Details: []Detail{}}

	if _, err := m.monitors.Detect(); err != nil {
		m.log.Error("monitor detection failed", err)
	}

	rules := m.rules.ActiveRules()
	if len(rules) == 0 {
		return summary, nil
	}

	windows, err := m.Windows()
	if err != nil {
		return summary, err
	}

	for _, rule := range rules {
		if !m.monitors.IsConnected(rule.TargetMonitorID) {
			summary.SkippedNoMonitor++
			summary.Details = append(summary.Details, Detail{
				RuleID:  rule.RuleID,
				Result:  ResultSkippedNoMonitor,
				Message: fmt.Sprintf("Target monitor %s is not connected", rule.TargetMonitorID),
			})
			continue
		}

		matched := matchingWindows(rule, windows)
		if len(matched) == 0 {
			summary.SkippedNoWindow++
			summary.Details = append(summary.Details, Detail{
				RuleID:  rule.RuleID,
				Result:  ResultSkippedNoWindow,
				Message: fmt.Sprintf("No windows match %s=%s", rule.MatchType, rule.MatchValue),
			})
			continue
		}

		for _, w := range matched {
			if skipForRules(w) {
				continue
			}
			res, err := m.ApplyRuleToWindow(w.Handle, rule.TargetMonitorID, rule.Maximize, rule.Fullscreen)
			if err != nil {
				m.log.Error("failed to apply rule", err, "rule_id", rule.RuleID, "hwnd", uint64(w.Handle), "title", w.Title)
				summary.Failed++
				summary.Details = append(summary.Details, Detail{
					RuleID:  rule.RuleID,
					Result:  ResultError,
					Message: err.Error(),
					Window:  w.Title,
				})
				continue
			}
			if res.Changed {
				summary.Applied++
				summary.Details = append(summary.Details, Detail{
					RuleID:     rule.RuleID,
					Result:     ResultApplied,
					Window:     w.Title,
					Operations: res.Operations,
				})
			}
		}
	}

	if summary.Applied > 0 || summary.Failed > 0 {
		m.log.Info("rules applied", "applied", summary.Applied, "failed", summary.Failed,
			"skipped_no_monitor", summary.SkippedNoMonitor, "skipped_no_window", summary.SkippedNoWindow)
	}
	return summary, nil
}

func matchingWindows(rule layout.ResolvedRule, windows []Window) []Window {
	var out []Window
	for _, w := range windows {
		if rule.Matches(w.Target()) {
			out = append(out, w)
		}
	}
	return out
}

// skipForRules reports windows the engine leaves alone. A minimized window
// is the user opting out.
func skipForRules(w Window) bool {
	return w.IsMinimized || strings.TrimSpace(w.Title) == "" || w.Title == "Program Manager"
}
