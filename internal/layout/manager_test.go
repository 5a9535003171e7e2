package layout

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/1broseidon/screenward/internal/monitor"
)

const codingLayout = `{
  "name": "Coding",
  "description": "Editor vertical, browser horizontal",
  "screen_requirements": {"total_screens": 2, "screens": [
    {"display_number": 1, "orientation": "vertical"},
    {"display_number": 2, "orientation": "horizontal"}
  ]},
  "rules": [
    {"rule_id": "rule_chrome", "match_type": "exe", "match_value": "chrome.exe", "target_display": 2, "maximize": true},
    {"rule_id": "rule_code", "match_type": "exe", "match_value": "code", "target_display": 1, "fullscreen": true}
  ]
}`

const singleLayout = `{
  "name": "Laptop",
  "screen_requirements": {"total_screens": 1, "screens": [{"display_number": 1, "orientation": "horizontal"}]},
  "rules": []
}`

func twoScreens() []monitor.Connected {
	return []monitor.Connected{
		connected("monitor_a", "DISPLAY1 (1080×1920)", 1080, 1920),
		connected("monitor_b", "DISPLAY2 (1920×1080)", 1920, 1080),
	}
}

func newTestManager(t *testing.T, src *fakeMonitors, files map[string]string) *Manager {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "layouts")
	m, err := NewManager(dir, NewMatcher(src, nil), nil)
	if err != nil {
		t.Fatalf("NewManager() error: %v", err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	seq := 0
	m.newRuleID = func() string {
		seq++
		return fmt.Sprintf("rule_%08d", seq)
	}
	m.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	return m
}

func TestActivateResolvesRules(t *testing.T) {
	src := &fakeMonitors{list: twoScreens()}
	m := newTestManager(t, src, map[string]string{"coding.json": codingLayout})

	res, err := m.Activate("coding")
	if err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	if res.Layout != "Coding" || res.RulesCount != 2 {
		t.Errorf("Activate() = %+v", res)
	}

	want := []ResolvedRule{
		{RuleID: "rule_chrome", MatchType: MatchExe, MatchValue: "chrome.exe", TargetMonitorID: "monitor_b", Maximize: true},
		{RuleID: "rule_code", MatchType: MatchExe, MatchValue: "code", TargetMonitorID: "monitor_a", Fullscreen: true},
	}
	if diff := cmp.Diff(want, m.ActiveRules()); diff != "" {
		t.Errorf("ActiveRules() mismatch (-want +got):\n%s", diff)
	}

	info, ok := m.Active()
	if !ok {
		t.Fatal("Active() reported no layout")
	}
	if info.FileName != "coding.json" || info.RulesCount != 2 {
		t.Errorf("Active() = %+v", info)
	}
	if info.ScreenSummary != "2 screen(s): DISPLAY1 (vertical, 1080x1920), DISPLAY2 (horizontal, 1920x1080)" {
		t.Errorf("ScreenSummary = %q", info.ScreenSummary)
	}
}

func TestActivateRefusedWhileActive(t *testing.T) {
	src := &fakeMonitors{list: twoScreens()}
	m := newTestManager(t, src, map[string]string{
		"coding.json": codingLayout,
		"other.json":  strings.Replace(codingLayout, `"Coding"`, `"Other"`, 1),
	})
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}
	before, _ := m.Active()

	_, err := m.Activate("other")
	if !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("Activate() error = %v, want ErrAlreadyActive", err)
	}
	if !strings.Contains(err.Error(), "Layout 'Coding' is already active") {
		t.Errorf("error = %q", err.Error())
	}
	after, _ := m.Active()
	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("active state mutated (-before +after):\n%s", diff)
	}
}

func TestActivateFailures(t *testing.T) {
	tests := []struct {
		name     string
		screens  []monitor.Connected
		layout   string
		wantErr  error
		wantText string
	}{
		{
			name:     "missing file",
			screens:  twoScreens(),
			layout:   "nope",
			wantErr:  ErrNotFound,
			wantText: "Cannot load layout: Layout file not found:",
		},
		{
			name:     "requirements unmet",
			screens:  twoScreens()[:1],
			layout:   "coding",
			wantErr:  ErrRequirements,
			wantText: "Screen configuration doesn't match layout requirements: Need exactly 2 screen(s), but 1 connected",
		},
		{
			name:     "invalid file",
			screens:  twoScreens(),
			layout:   "broken",
			wantErr:  ErrInvalid,
			wantText: "Cannot load layout: Invalid layout file: Missing required field: rules",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, &fakeMonitors{list: tt.screens}, map[string]string{
				"coding.json": codingLayout,
				"broken.json": `{"name": "Broken", "screen_requirements": {"total_screens": 1, "screens": []}}`,
			})
			_, err := m.Activate(tt.layout)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Activate() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.HasPrefix(err.Error(), tt.wantText) {
				t.Errorf("error = %q, want prefix %q", err.Error(), tt.wantText)
			}
			if _, ok := m.Active(); ok {
				t.Error("failed activation left a layout active")
			}
		})
	}
}

func TestDeactivate(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"coding.json": codingLayout})
	if _, err := m.Deactivate(); !errors.Is(err, ErrNotActive) {
		t.Errorf("Deactivate() with nothing active error = %v, want ErrNotActive", err)
	}
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}
	name, err := m.Deactivate()
	if err != nil || name != "Coding" {
		t.Errorf("Deactivate() = %q, %v", name, err)
	}
	if rules := m.ActiveRules(); len(rules) != 0 {
		t.Errorf("ActiveRules() after deactivate = %v", rules)
	}
}

func TestCheckValidityRevokesOnUnplug(t *testing.T) {
	src := &fakeMonitors{list: twoScreens()}
	m := newTestManager(t, src, map[string]string{"coding.json": codingLayout})
	if !m.CheckValidity() {
		t.Error("CheckValidity() with nothing active should be true")
	}
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}
	if !m.CheckValidity() {
		t.Fatal("CheckValidity() revoked a satisfied layout")
	}

	src.list = src.list[:1]
	if m.CheckValidity() {
		t.Fatal("CheckValidity() kept a layout after DISPLAY2 was unplugged")
	}
	if _, ok := m.Active(); ok {
		t.Error("layout still active after revocation")
	}
	if rules := m.ActiveRules(); len(rules) != 0 {
		t.Errorf("ActiveRules() = %v, want none", rules)
	}
}

func TestDisplayMapFixedAtActivation(t *testing.T) {
	src := &fakeMonitors{list: twoScreens()}
	m := newTestManager(t, src, map[string]string{"coding.json": codingLayout})
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}

	// A different monitor now occupies slot 2 with the same shape.
	src.list = []monitor.Connected{
		connected("monitor_a", "DISPLAY1 (1080×1920)", 1080, 1920),
		connected("monitor_c", "DISPLAY2 (2560×1440)", 2560, 1440),
	}
	if !m.CheckValidity() {
		t.Fatal("layout revoked although requirements still hold")
	}
	for _, r := range m.ActiveRules() {
		if r.TargetMonitorID == "monitor_c" {
			t.Errorf("rule %s re-resolved to the new monitor", r.RuleID)
		}
	}
}

func TestActiveRulesSkipsUnmappedTargets(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"coding.json": codingLayout})
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}
	m.mu.Lock()
	m.active.data.Rules = append(m.active.data.Rules, Rule{RuleID: "rule_ghost", MatchType: MatchExe, MatchValue: "x", TargetDisplay: 9})
	m.mu.Unlock()

	for _, r := range m.ActiveRules() {
		if r.RuleID == "rule_ghost" {
			t.Error("rule with unmapped target was resolved")
		}
	}
	if n := len(m.ActiveRules()); n != 2 {
		t.Errorf("ActiveRules() = %d rules, want 2", n)
	}
}

func TestPreview(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()[1:]}, map[string]string{"coding.json": codingLayout})
	p, err := m.Preview("coding")
	if err != nil {
		t.Fatalf("Preview() error: %v", err)
	}
	if p.CanApply || p.Reason != "Need exactly 2 screen(s), but 1 connected" {
		t.Errorf("Preview() = can_apply %v, reason %q", p.CanApply, p.Reason)
	}
	if p.FileName != "coding.json" || p.RulesCount != 2 || len(p.CurrentScreenConfig) != 1 {
		t.Errorf("Preview() = %+v", p)
	}
}

func TestList(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{}, map[string]string{
		"coding.json": codingLayout,
		"laptop.json": singleLayout,
		"junk.json":   "not json",
		"notes.txt":   "ignored",
	})
	got, err := m.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []Info{
		{Name: "Coding", FileName: "coding.json", FilePath: filepath.Join(m.Dir(), "coding.json"), Description: "Editor vertical, browser horizontal", TotalScreens: 2},
		{Name: "Laptop", FileName: "laptop.json", FilePath: filepath.Join(m.Dir(), "laptop.json"), TotalScreens: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateFromCurrent(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, nil)
	res, err := m.CreateFromCurrent("Home Office", "")
	if err != nil {
		t.Fatalf("CreateFromCurrent() error: %v", err)
	}
	if res.FileName != "home-office.json" {
		t.Errorf("FileName = %q", res.FileName)
	}

	l, err := m.Load("home-office")
	if err != nil {
		t.Fatalf("created layout does not load: %v", err)
	}
	want := Layout{
		Name:        "Home Office",
		Description: "Layout with 2 screens",
		Version:     "1.0",
		ScreenRequirements: Requirements{TotalScreens: 2, Screens: []Screen{
			{DisplayNumber: 1, Orientation: Vertical, Description: "Vertical screen - DISPLAY1 (1080×1920)"},
			{DisplayNumber: 2, Orientation: Horizontal, Description: "Horizontal screen - DISPLAY2 (1920×1080)"},
		}},
		Rules: []Rule{},
		Metadata: map[string]any{
			"created": "2026-03-04T05:06:07Z",
			"author":  "screenward",
			"tags":    []any{"vertical", "horizontal"},
		},
	}
	if diff := cmp.Diff(want, *l); diff != "" {
		t.Errorf("created layout mismatch (-want +got):\n%s", diff)
	}

	if _, err := m.CreateFromCurrent("Home Office", ""); !errors.Is(err, ErrExists) {
		t.Errorf("second CreateFromCurrent() error = %v, want ErrExists", err)
	}
}

func TestCreateFromCurrentSingleScreen(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()[1:]}, nil)
	if _, err := m.CreateFromCurrent("solo", ""); err != nil {
		t.Fatal(err)
	}
	l, err := m.Load("solo")
	if err != nil {
		t.Fatal(err)
	}
	if l.Description != "Layout with 1 screen" {
		t.Errorf("Description = %q", l.Description)
	}
}

func TestCreateFromCurrentWithoutScreens(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{}, nil)
	_, err := m.CreateFromCurrent("empty", "")
	if err == nil || err.Error() != "No screens detected. Cannot create layout." {
		t.Errorf("CreateFromCurrent() error = %v", err)
	}
}

func TestUpsertRule(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"coding.json": codingLayout})

	// "Chrome" normalizes onto the existing chrome.exe rule.
	change, err := m.UpsertRule("coding", RuleInput{MatchType: MatchExe, MatchValue: "Chrome", TargetDisplay: 1, Fullscreen: true})
	if err != nil {
		t.Fatalf("UpsertRule() error: %v", err)
	}
	if change.Created || change.RuleID != "rule_chrome" || change.Active {
		t.Errorf("UpsertRule() = %+v, want update of rule_chrome", change)
	}

	change, err = m.UpsertRule("coding", RuleInput{MatchType: MatchWindowTitle, MatchValue: "Spotify", TargetDisplay: 2})
	if err != nil {
		t.Fatal(err)
	}
	if !change.Created || change.RuleID != "rule_00000001" {
		t.Errorf("UpsertRule() = %+v, want new rule", change)
	}

	l, err := m.Load("coding")
	if err != nil {
		t.Fatal(err)
	}
	want := []Rule{
		{RuleID: "rule_chrome", MatchType: MatchExe, MatchValue: "chrome.exe", TargetDisplay: 1, Fullscreen: true},
		{RuleID: "rule_code", MatchType: MatchExe, MatchValue: "code", TargetDisplay: 1, Fullscreen: true},
		{RuleID: "rule_00000001", MatchType: MatchWindowTitle, MatchValue: "Spotify", TargetDisplay: 2},
	}
	if diff := cmp.Diff(want, l.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertRuleValidation(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"coding.json": codingLayout})
	tests := []struct {
		name string
		in   RuleInput
		want string
	}{
		{"missing value", RuleInput{MatchType: MatchExe, TargetDisplay: 1}, "match_type and match_value are required"},
		{"zero display", RuleInput{MatchType: MatchExe, MatchValue: "a", TargetDisplay: 0}, "target_display must be a positive integer"},
		{"undeclared display", RuleInput{MatchType: MatchExe, MatchValue: "a", TargetDisplay: 3}, "Display 3 not in layout requirements. Available displays: [1, 2]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.UpsertRule("coding", tt.in)
			if !errors.Is(err, ErrInvalid) || err.Error() != tt.want {
				t.Errorf("UpsertRule() error = %v, want %q", err, tt.want)
			}
		})
	}
	if _, err := m.UpsertRule("missing", RuleInput{MatchType: MatchExe, MatchValue: "a", TargetDisplay: 1}); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpsertRule() on missing layout error = %v, want ErrNotFound", err)
	}
}

func TestRuleEditsReachActiveLayout(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"coding.json": codingLayout})
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}

	change, err := m.UpsertRule("coding", RuleInput{MatchType: MatchExe, MatchValue: "slack.exe", TargetDisplay: 1, Maximize: true})
	if err != nil {
		t.Fatal(err)
	}
	if !change.Active {
		t.Error("UpsertRule() did not report the active layout was updated")
	}
	if n := len(m.ActiveRules()); n != 3 {
		t.Errorf("ActiveRules() = %d, want 3 after upsert", n)
	}

	active, err := m.DeleteRule("coding", "rule_chrome")
	if err != nil || !active {
		t.Fatalf("DeleteRule() = %v, %v", active, err)
	}
	for _, r := range m.ActiveRules() {
		if r.RuleID == "rule_chrome" {
			t.Error("deleted rule still active")
		}
	}

	if _, err := m.DeleteRule("coding", "rule_chrome"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("DeleteRule() twice error = %v, want ErrRuleNotFound", err)
	}
}

func TestDeleteLayout(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{
		"coding.json": codingLayout,
		"laptop.json": singleLayout,
	})
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}
	if err := m.Delete("coding"); !errors.Is(err, ErrActiveLayout) {
		t.Errorf("Delete(active) error = %v, want ErrActiveLayout", err)
	}
	if err := m.Delete("laptop"); err != nil {
		t.Errorf("Delete(laptop) error = %v", err)
	}
	if err := m.Delete("laptop"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
	if err := m.Delete("../escape"); !errors.Is(err, ErrInvalid) {
		t.Errorf("Delete(traversal) error = %v, want ErrInvalid", err)
	}
}

func TestReloadActive(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"coding.json": codingLayout})
	if err := m.ReloadActive(); !errors.Is(err, ErrNotActive) {
		t.Errorf("ReloadActive() with nothing active error = %v", err)
	}
	if _, err := m.Activate("coding"); err != nil {
		t.Fatal(err)
	}

	var l Layout
	if err := json.Unmarshal([]byte(codingLayout), &l); err != nil {
		t.Fatal(err)
	}
	l.Rules = l.Rules[:1]
	data, _ := json.Marshal(l)
	path := filepath.Join(m.Dir(), "coding.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.ReloadActive(); err != nil {
		t.Fatalf("ReloadActive() error: %v", err)
	}
	if n := len(m.ActiveRules()); n != 1 {
		t.Errorf("ActiveRules() = %d, want 1 after reload", n)
	}

	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := m.ReloadActive(); !errors.Is(err, ErrInvalid) {
		t.Errorf("ReloadActive() on broken file error = %v, want ErrInvalid", err)
	}
	if n := len(m.ActiveRules()); n != 1 {
		t.Errorf("broken reload replaced rules: %d", n)
	}
}

func TestConcurrentRuleEditsKeepEveryRule(t *testing.T) {
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"coding.json": codingLayout})

	const n = 20
	errs := make(chan error, n+1)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := m.UpsertRule("coding", RuleInput{MatchType: MatchExe, MatchValue: fmt.Sprintf("app%d", i), TargetDisplay: 1})
			errs <- err
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := m.DeleteRule("coding", "rule_code")
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("concurrent edit error: %v", err)
		}
	}

	l, err := m.Load("coding")
	if err != nil {
		t.Fatalf("Load() after concurrent edits: %v", err)
	}
	if got, want := len(l.Rules), n+1; got != want {
		t.Errorf("rules after concurrent edits = %d, want %d", got, want)
	}
	for _, r := range l.Rules {
		if r.RuleID == "rule_code" {
			t.Error("deleted rule came back")
		}
	}

	entries, err := os.ReadDir(m.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("layouts dir has %d entries, want only coding.json", len(entries))
	}
}

func TestRulesWithoutIDsGetStableIDs(t *testing.T) {
	const noIDs = `{
  "name": "Plain",
  "screen_requirements": {"total_screens": 2, "screens": [
    {"display_number": 1, "orientation": "vertical"},
    {"display_number": 2, "orientation": "horizontal"}
  ]},
  "rules": [
    {"match_type": "exe", "match_value": "chrome.exe", "target_display": 2}
  ]
}`
	m := newTestManager(t, &fakeMonitors{list: twoScreens()}, map[string]string{"plain.json": noIDs})
	if _, err := m.Activate("plain"); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}

	first := m.ActiveRules()
	second := m.ActiveRules()
	if len(first) != 1 || first[0].RuleID == "" {
		t.Fatalf("ActiveRules() = %+v, want one rule with an id", first)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("ids changed between calls (-first +second):\n%s", diff)
	}

	l, err := m.Load("plain")
	if err != nil {
		t.Fatal(err)
	}
	if l.Rules[0].RuleID != first[0].RuleID {
		t.Errorf("stored rule id = %q, want persisted %q", l.Rules[0].RuleID, first[0].RuleID)
	}

	active, err := m.DeleteRule("plain", first[0].RuleID)
	if err != nil || !active {
		t.Fatalf("DeleteRule(%q) = %v, %v", first[0].RuleID, active, err)
	}
	if n := len(m.ActiveRules()); n != 0 {
		t.Errorf("ActiveRules() = %d after delete, want 0", n)
	}
}
