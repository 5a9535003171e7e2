package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/screenward/internal/config"
	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
	"github.com/1broseidon/screenward/internal/window"
)

const framed = platform.StyleCaption | platform.StyleThickFrame

var (
	leftBounds  = platform.Rect{X: 0, Y: 0, Width: 1080, Height: 1920}
	rightBounds = platform.Rect{X: 1080, Y: 0, Width: 1920, Height: 1080}
)

// stubBackend is a minimal window system without fullscreen support.
type stubBackend struct {
	mu       sync.Mutex
	displays []platform.Display
	windows  map[platform.WindowID]*platform.Window
}

func (b *stubBackend) Displays() ([]platform.Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Display(nil), b.displays...), nil
}

func (b *stubBackend) Windows() ([]platform.WindowID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []platform.WindowID
	for id := range b.windows {
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *stubBackend) Describe(id platform.WindowID) (platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[id]
	if !ok {
		return platform.Window{}, errors.New("gone")
	}
	return *w, nil
}

func (b *stubBackend) update(id platform.WindowID, fn func(*platform.Window)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[id]
	if !ok {
		return errors.New("gone")
	}
	fn(w)
	return nil
}

func (b *stubBackend) Restore(id platform.WindowID) error {
	return b.update(id, func(w *platform.Window) { w.State = platform.ShowNormal })
}

func (b *stubBackend) Maximize(id platform.WindowID) error {
	return b.update(id, func(w *platform.Window) { w.State = platform.ShowMaximized })
}

func (b *stubBackend) MoveResize(id platform.WindowID, r platform.Rect) error {
	return b.update(id, func(w *platform.Window) { w.Bounds = r })
}

func (b *stubBackend) Raise(platform.WindowID) error          { return nil }
func (b *stubBackend) Foreground() (platform.WindowID, error) { return 0, nil }
func (b *stubBackend) SetForeground(platform.WindowID) error  { return nil }
func (b *stubBackend) KeyDown(platform.Key) error             { return nil }
func (b *stubBackend) KeyUp(platform.Key) error               { return nil }
func (b *stubBackend) Close() error                           { return nil }

func (b *stubBackend) window(id platform.WindowID) platform.Window {
	w, _ := b.Describe(id)
	return w
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

type fixture struct {
	svc     *Service
	backend *stubBackend
	store   *monitor.Store
	layouts *layout.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.MonitorsFile = filepath.Join(dir, "monitors.json")
	cfg.LayoutsDir = filepath.Join(dir, "layouts")
	cfg.Intervals = config.Intervals{
		Tick:          10 * time.Millisecond,
		WindowCache:   10 * time.Millisecond,
		MonitorDetect: 10 * time.Millisecond,
		LayoutCheck:   10 * time.Millisecond,
		RulesApply:    10 * time.Millisecond,
	}
	cfg.StopTimeout = 2 * time.Second
	cfg.WatchLayouts = false

	b := &stubBackend{
		displays: []platform.Display{
			{Device: `\\.\DISPLAY1`, Bounds: leftBounds, Usable: leftBounds, Primary: true, Scale: 1},
			{Device: `\\.\DISPLAY2`, Bounds: rightBounds, Usable: rightBounds, Scale: 1},
		},
		windows: map[platform.WindowID]*platform.Window{
			1: {ID: 1, PID: 10, Title: "Inbox - Chrome", Bounds: platform.Rect{X: 100, Y: 100, Width: 800, Height: 600}, Style: framed},
		},
	}

	store, err := monitor.OpenStore(cfg.MonitorsFile, nil)
	if err != nil {
		t.Fatalf("OpenStore() error: %v", err)
	}
	mons := monitor.NewManager(store, b, nil)
	layouts, err := layout.NewManager(cfg.LayoutsDir, layout.NewMatcher(mons, nil), nil)
	if err != nil {
		t.Fatalf("layout.NewManager() error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.LayoutsDir, "coding.json"), []byte(codingLayout), 0644); err != nil {
		t.Fatal(err)
	}
	wm := window.NewManager(b, mons, layouts, window.Options{
		ProcessPath: func(int) (string, error) { return `C:\Apps\chrome.exe`, nil },
		Sleep:       func(time.Duration) {},
	})

	svc, err := New(Deps{Config: cfg, Monitors: mons, Layouts: layouts, Windows: wm})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Stop() })
	return &fixture{svc: svc, backend: b, store: store, layouts: layouts}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestNewRequiresDeps(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Fatal("New(Deps{}) error = nil")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFixture(t)

	if got := f.svc.Status().Status; got != StateStopped {
		t.Fatalf("initial status = %q, want stopped", got)
	}
	if err := f.svc.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Stop() before start = %v, want ErrNotRunning", err)
	}
	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := f.svc.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("second Start() = %v, want ErrAlreadyRunning", err)
	}
	if !f.svc.Running() {
		t.Fatal("Running() = false after Start")
	}
	if err := f.svc.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := f.svc.Status().Status; got != StateStopped {
		t.Fatalf("status after stop = %q, want stopped", got)
	}
	if err := f.svc.Restart(context.Background()); err != nil {
		t.Fatalf("Restart() error: %v", err)
	}
	if !f.svc.Running() {
		t.Fatal("Running() = false after Restart")
	}
}

func TestStopTimeoutBlocksRestartUntilLoopExits(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.StopTimeout = 20 * time.Millisecond

	// A loop that ignores cancellation.
	stuck := make(chan struct{})
	f.svc.mu.Lock()
	f.svc.state = StateRunning
	f.svc.cancel = func() {}
	f.svc.done = stuck
	f.svc.mu.Unlock()

	if err := f.svc.Stop(); err == nil {
		t.Fatal("Stop() with a stuck loop error = nil")
	}
	if st := f.svc.Status(); st.Status != StateError || st.ErrorMessage == "" {
		t.Fatalf("status after timed out stop = %+v, want error state", st)
	}
	if err := f.svc.Start(context.Background()); !errors.Is(err, ErrLoopBusy) {
		t.Fatalf("Start() while old loop runs = %v, want ErrLoopBusy", err)
	}
	if err := f.svc.Restart(context.Background()); !errors.Is(err, ErrLoopBusy) {
		t.Fatalf("Restart() while old loop runs = %v, want ErrLoopBusy", err)
	}

	close(stuck)
	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() after old loop exited: %v", err)
	}
	if !f.svc.Running() {
		t.Fatal("Running() = false after Start")
	}
}

func TestStartActivatesDefaultLayoutAndConverges(t *testing.T) {
	f := newFixture(t)
	name := "coding"
	if _, err := f.store.UpdateSettings(monitor.SettingsPatch{DefaultLayout: &name}); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if info, ok := f.layouts.Active(); !ok || info.Name != "Coding" {
		t.Fatalf("Active() = %+v, %v, want Coding", info, ok)
	}

	waitFor(t, "window to reach DISPLAY2", func() bool {
		w := f.backend.window(1)
		return w.Bounds == rightBounds && w.State == platform.ShowMaximized
	})
	waitFor(t, "status counters", func() bool {
		st := f.svc.Status()
		return st.RulesApplied == 1 && st.LastRun != nil && st.Monitors == 2 && st.ActiveLayout == "Coding"
	})
}

func TestStartWithBrokenDefaultLayoutStillRuns(t *testing.T) {
	f := newFixture(t)
	name := "missing"
	if _, err := f.store.UpdateSettings(monitor.SettingsPatch{DefaultLayout: &name}); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if _, ok := f.layouts.Active(); ok {
		t.Fatal("a layout is active after failed default activation")
	}
	if !f.svc.Running() {
		t.Fatal("service not running")
	}
}

func TestApplyRulesNowUpdatesStatus(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Monitors().Detect(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.layouts.Activate("coding"); err != nil {
		t.Fatalf("Activate() error: %v", err)
	}
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	f.svc.now = func() time.Time { return fixed }

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.ApplyRulesNow(); err != nil {
				t.Errorf("ApplyRulesNow() error: %v", err)
			}
		}()
	}
	wg.Wait()

	st := f.svc.Status()
	if st.RulesApplied != 1 {
		t.Errorf("RulesApplied = %d, want 1 (later passes are no-ops)", st.RulesApplied)
	}
	if st.LastRun == nil || !st.LastRun.Equal(fixed) {
		t.Errorf("LastRun = %v, want %v", st.LastRun, fixed)
	}
	if st.Errors != 0 {
		t.Errorf("Errors = %d, want 0", st.Errors)
	}
}

func TestUpsertRuleAppliesWhenActive(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Monitors().Detect(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.layouts.Activate("coding"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ApplyRulesNow(); err != nil {
		t.Fatal(err)
	}
	if w := f.backend.window(1); w.Bounds != rightBounds {
		t.Fatalf("window = %+v, want on DISPLAY2 before the edit", w)
	}

	change, err := f.svc.UpsertRule("coding", layout.RuleInput{
		MatchType: layout.MatchExe, MatchValue: "chrome", TargetDisplay: 1,
	})
	if err != nil {
		t.Fatalf("UpsertRule() error: %v", err)
	}
	if change.Created || !change.Active {
		t.Fatalf("change = %+v, want in-place update of active layout", change)
	}
	if w := f.backend.window(1); w.Bounds != leftBounds || w.State != platform.ShowNormal {
		t.Fatalf("window = %+v, want normal on DISPLAY1", w)
	}
}

func TestCachedWindows(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Monitors().Detect(); err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	c, err := f.svc.CachedWindows()
	if err != nil {
		t.Fatalf("CachedWindows() error: %v", err)
	}
	if len(c.Windows) != 1 || c.Windows[0].ExeName != "chrome.exe" || c.AgeMS != 0 {
		t.Fatalf("cache = %+v", c)
	}

	f.svc.now = func() time.Time { return base.Add(1500 * time.Millisecond) }
	c, err = f.svc.CachedWindows()
	if err != nil {
		t.Fatal(err)
	}
	if c.AgeMS != 1500 || !c.Timestamp.Equal(base) {
		t.Fatalf("cache age = %d at %v, want 1500 at %v", c.AgeMS, c.Timestamp, base)
	}
}

func TestTickRunsDueDutiesOnly(t *testing.T) {
	f := newFixture(t)
	var runs []string
	mk := func(name string, iv time.Duration) *duty {
		return &duty{name: name, interval: iv, run: func() error {
			runs = append(runs, name)
			return nil
		}}
	}
	duties := []*duty{mk("fast", time.Second), mk("slow", 10*time.Second)}

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.tick(duties, t0)
	f.svc.tick(duties, t0.Add(500*time.Millisecond))
	f.svc.tick(duties, t0.Add(time.Second))
	f.svc.tick(duties, t0.Add(10*time.Second))

	want := "fast,slow,fast,fast,slow"
	if got := strings.Join(runs, ","); got != want {
		t.Fatalf("runs = %s, want %s", got, want)
	}
}

func TestRunDutyRecoversPanics(t *testing.T) {
	f := newFixture(t)
	f.svc.runDuty(&duty{name: "boom", run: func() error { panic("kaboom") }})
	f.svc.runDuty(&duty{name: "fail", run: func() error { return errors.New("nope") }})

	st := f.svc.Status()
	if st.Errors != 2 {
		t.Fatalf("Errors = %d, want 2", st.Errors)
	}
	if st.ErrorMessage != "fail: nope" {
		t.Fatalf("ErrorMessage = %q", st.ErrorMessage)
	}
}

func TestWatcherReloadsActiveLayout(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.WatchLayouts = true
	if _, err := f.svc.Monitors().Detect(); err != nil {
		t.Fatal(err)
	}
	if _, err := f.layouts.Activate("coding"); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	updated := strings.Replace(codingLayout, `"target_display": 2, "maximize": true`, `"target_display": 1, "maximize": false`, 1)
	if err := os.WriteFile(filepath.Join(f.layouts.Dir(), "coding.json"), []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "reloaded rules", func() bool {
		rules := f.layouts.ActiveRules()
		return len(rules) == 1 && !rules[0].Maximize
	})
	waitFor(t, "window to follow the new rule", func() bool {
		w := f.backend.window(1)
		return w.Bounds == leftBounds && w.State == platform.ShowNormal
	})
}
