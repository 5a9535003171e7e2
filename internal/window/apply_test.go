package window

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
)

func TestApplyRulesWithoutActiveRules(t *testing.T) {
	b := newFakeBackend()
	b.windowsErr = errors.New("should not enumerate")
	mons := twoMonitors()
	m, _ := newTestManager(b, mons, fakeRules(nil), nil)

	got, err := m.ApplyRules()
	if err != nil {
		t.Fatalf("ApplyRules() error: %v", err)
	}
	if diff := cmp.Diff(ApplySummary{Details: []Detail{}}, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if mons.detects != 1 {
		t.Errorf("detects = %d, want 1", mons.detects)
	}
}

func TestApplyRulesEnumerationFailure(t *testing.T) {
	b := newFakeBackend()
	b.windowsErr = errors.New("display closed")
	rules := fakeRules{{RuleID: "r", MatchType: layout.MatchExe, MatchValue: "chrome", TargetMonitorID: "monitor_right"}}
	m, _ := newTestManager(b, twoMonitors(), rules, nil)

	if _, err := m.ApplyRules(); !errors.Is(err, b.windowsErr) {
		t.Errorf("ApplyRules() error = %v, want %v", err, b.windowsErr)
	}
}

func TestApplyRulesCountsEachOutcome(t *testing.T) {
	b := newFakeBackend()
	b.add(platform.Window{ID: 1, PID: 10, Title: "Chrome 1", Bounds: onLeft, Style: framed})
	b.add(platform.Window{ID: 2, PID: 10, Title: "Chrome 2", Bounds: onLeft, Style: framed, State: platform.ShowMinimized})
	b.add(platform.Window{ID: 3, PID: 10, Title: "Chrome 3", Bounds: onRight, Style: framed, State: platform.ShowMaximized})
	b.add(platform.Window{ID: 4, PID: 20, Title: "Notes", Bounds: onLeft, Style: framed})
	b.maximizeErr[4] = errors.New("boom")

	rules := fakeRules{
		{RuleID: "rule_gone", MatchType: layout.MatchExe, MatchValue: "code", TargetMonitorID: "monitor_gone"},
		{RuleID: "rule_slack", MatchType: layout.MatchExe, MatchValue: "slack", TargetMonitorID: "monitor_left"},
		{RuleID: "rule_chrome", MatchType: layout.MatchExe, MatchValue: "chrome.exe", TargetMonitorID: "monitor_right", Maximize: true},
		{RuleID: "rule_notes", MatchType: layout.MatchWindowTitle, MatchValue: "notes", TargetMonitorID: "monitor_left", Maximize: true},
	}
	mons := twoMonitors()
	mons.detectErr = errors.New("transient")
	m, _ := newTestManager(b, mons, rules, map[int]string{
		10: `C:\Program Files\Google\Chrome\Application\chrome.exe`,
		20: `C:\Windows\notepad.exe`,
	})

	got, err := m.ApplyRules()
	if err != nil {
		t.Fatalf("ApplyRules() error: %v", err)
	}
	want := ApplySummary{
		Applied:          1,
		SkippedNoMonitor: 1,
		SkippedNoWindow:  1,
		Failed:           1,
		Details: []Detail{
			{RuleID: "rule_gone", Result: ResultSkippedNoMonitor, Message: "Target monitor monitor_gone is not connected"},
			{RuleID: "rule_slack", Result: ResultSkippedNoWindow, Message: "No windows match exe=slack"},
			{RuleID: "rule_chrome", Result: ResultApplied, Window: "Chrome 1", Operations: []string{OpMove, OpMaximize}},
			{RuleID: "rule_notes", Result: ResultError, Message: "maximize: boom", Window: "Notes"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	if b.windows[2].Bounds != onLeft {
		t.Error("minimized window was moved")
	}
}

const codingLayout = `{
  "name": "Coding",
  "screen_requirements": {"total_screens": 2, "screens": [
    {"display_number": 1, "orientation": "vertical"},
    {"display_number": 2, "orientation": "horizontal"}
  ]},
  "rules": [
    {"rule_id": "rule_chrome", "match_type": "exe", "match_value": "chrome.exe", "target_display": 2, "maximize": true}
  ]
}`

func TestApplyRulesEndToEnd(t *testing.T) {
	dir := t.TempDir()
	b := newFakeBackend()
	b.displays = []platform.Display{
		{Device: `\\.\DISPLAY1`, Bounds: leftBounds, Usable: leftBounds, Primary: true, Scale: 1},
		{Device: `\\.\DISPLAY2`, Bounds: rightBounds, Usable: rightBounds, Scale: 1},
	}
	b.add(platform.Window{ID: 1, PID: 10, Title: "Inbox - Chrome", Bounds: onLeft, Style: framed})

	store, err := monitor.OpenStore(filepath.Join(dir, "monitors.json"), nil)
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	mons := monitor.NewManager(store, b, nil)
	if _, err := mons.Detect(); err != nil {
		t.Fatalf("Detect() error: %v", err)
	}

	layouts, err := layout.NewManager(filepath.Join(dir, "layouts"), layout.NewMatcher(mons, nil), nil)
	if err != nil {
		t.Fatalf("layout.NewManager() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(layouts.Dir(), "coding.json"), []byte(codingLayout), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := layouts.Activate("coding"); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}

	m, _ := newTestManager(b, mons, layouts, map[int]string{10: `C:\Apps\Chrome\chrome.exe`})

	got, err := m.ApplyRules()
	if err != nil {
		t.Fatalf("ApplyRules() error: %v", err)
	}
	if got.Applied != 1 || got.SkippedNoMonitor != 0 || got.Failed != 0 {
		t.Fatalf("summary = %+v, want one applied", got)
	}
	if diff := cmp.Diff([]string{OpMove, OpMaximize}, got.Details[0].Operations); diff != "" {
		t.Errorf("operations mismatch (-want +got):\n%s", diff)
	}
	w := b.windows[1]
	if w.Bounds != rightBounds || w.State != platform.ShowMaximized {
		t.Errorf("window = %+v, want maximized on DISPLAY2", *w)
	}

	again, err := m.ApplyRules()
	if err != nil {
		t.Fatalf("second ApplyRules() error: %v", err)
	}
	if diff := cmp.Diff(ApplySummary{Details: []Detail{}}, again); diff != "" {
		t.Errorf("second pass not idempotent (-want +got):\n%s", diff)
	}

	// Unplugging DISPLAY2 revokes the layout and leaves nothing to apply.
	b.displays = b.displays[:1]
	if _, err := mons.Detect(); err != nil {
		t.Fatalf("Detect() error: %v", err)
	}
	if layouts.CheckValidity() {
		t.Fatal("CheckValidity() = true after unplug, want revoked")
	}
	after, err := m.ApplyRules()
	if err != nil {
		t.Fatalf("ApplyRules() after unplug error: %v", err)
	}
	if diff := cmp.Diff(ApplySummary{Details: []Detail{}}, after); diff != "" {
		t.Errorf("summary after unplug (-want +got):\n%s", diff)
	}
}
