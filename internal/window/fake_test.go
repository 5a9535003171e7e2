package window

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/platform"
)

const framed = platform.StyleCaption | platform.StyleThickFrame

var errGone = errors.New("window no longer exists")

// fakeBackend is an in-memory window system. Pressing the fullscreen key
// flips the style bits of the foreground window, like a browser would.
type fakeBackend struct {
	displays []platform.Display
	windows  map[platform.WindowID]*platform.Window
	order    []platform.WindowID
	fg       platform.WindowID

	windowsErr  error
	maximizeErr map[platform.WindowID]error
	ignoresKey  map[platform.WindowID]bool
	vanishOnKey map[platform.WindowID]bool
	refuseFocus bool
	// wmFullscreen models an EWMH window manager: Restore drops fullscreen
	// and moves are ignored while a window is fullscreen.
	wmFullscreen bool
	keyDownErr   error
	calls        []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		windows:     make(map[platform.WindowID]*platform.Window),
		maximizeErr: make(map[platform.WindowID]error),
		ignoresKey:  make(map[platform.WindowID]bool),
		vanishOnKey: make(map[platform.WindowID]bool),
	}
}

func (f *fakeBackend) add(w platform.Window) {
	f.windows[w.ID] = &w
	f.order = append(f.order, w.ID)
}

func (f *fakeBackend) window(id platform.WindowID) (*platform.Window, error) {
	w, ok := f.windows[id]
	if !ok {
		return nil, errGone
	}
	return w, nil
}

func (f *fakeBackend) Displays() ([]platform.Display, error) { return f.displays, nil }

func (f *fakeBackend) Windows() ([]platform.WindowID, error) {
	if f.windowsErr != nil {
		return nil, f.windowsErr
	}
	return append([]platform.WindowID(nil), f.order...), nil
}

func (f *fakeBackend) Describe(id platform.WindowID) (platform.Window, error) {
	w, err := f.window(id)
	if err != nil {
		return platform.Window{}, err
	}
	return *w, nil
}

func (f *fakeBackend) Restore(id platform.WindowID) error {
	f.calls = append(f.calls, fmt.Sprintf("restore %d", id))
	w, err := f.window(id)
	if err != nil {
		return err
	}
	w.State = platform.ShowNormal
	if f.wmFullscreen {
		w.Style = framed
	}
	return nil
}

func (f *fakeBackend) Maximize(id platform.WindowID) error {
	f.calls = append(f.calls, fmt.Sprintf("maximize %d", id))
	if err := f.maximizeErr[id]; err != nil {
		return err
	}
	w, err := f.window(id)
	if err != nil {
		return err
	}
	w.State = platform.ShowMaximized
	return nil
}

func (f *fakeBackend) MoveResize(id platform.WindowID, r platform.Rect) error {
	f.calls = append(f.calls, fmt.Sprintf("move %d", id))
	w, err := f.window(id)
	if err != nil {
		return err
	}
	if f.wmFullscreen && IsFullscreen(w.Style) {
		return nil
	}
	w.Bounds = r
	return nil
}

func (f *fakeBackend) Raise(id platform.WindowID) error {
	f.calls = append(f.calls, fmt.Sprintf("raise %d", id))
	_, err := f.window(id)
	return err
}

func (f *fakeBackend) Foreground() (platform.WindowID, error) { return f.fg, nil }

func (f *fakeBackend) SetForeground(id platform.WindowID) error {
	f.calls = append(f.calls, fmt.Sprintf("foreground %d", id))
	if f.refuseFocus {
		return errors.New("foreground lock")
	}
	f.fg = id
	return nil
}

func (f *fakeBackend) KeyDown(k platform.Key) error {
	f.calls = append(f.calls, "key_down")
	return f.keyDownErr
}

func (f *fakeBackend) KeyUp(k platform.Key) error {
	f.calls = append(f.calls, "key_up")
	if k != platform.KeyFullscreen {
		return nil
	}
	id := f.fg
	if f.vanishOnKey[id] {
		delete(f.windows, id)
		return nil
	}
	w, ok := f.windows[id]
	if !ok || f.ignoresKey[id] {
		return nil
	}
	if IsFullscreen(w.Style) {
		w.Style = framed
	} else {
		w.Style = 0
	}
	return nil
}

func (f *fakeBackend) Close() error { return nil }

// fakeMonitors is a fixed connected set.
type fakeMonitors struct {
	connected map[string]monitor.Connected
	detectErr error
	detects   int
}

func newFakeMonitors(ms ...monitor.Connected) *fakeMonitors {
	f := &fakeMonitors{connected: make(map[string]monitor.Connected)}
	for _, m := range ms {
		f.connected[m.ID] = m
	}
	return f
}

func (f *fakeMonitors) Detect() ([]string, error) {
	f.detects++
	if f.detectErr != nil {
		return nil, f.detectErr
	}
	return f.ids(), nil
}

func (f *fakeMonitors) ids() []string {
	ids := make([]string, 0, len(f.connected))
	for id := range f.connected {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *fakeMonitors) IsConnected(id string) bool {
	_, ok := f.connected[id]
	return ok
}

func (f *fakeMonitors) ConnectedMonitor(id string) (monitor.Connected, bool) {
	m, ok := f.connected[id]
	return m, ok
}

func (f *fakeMonitors) ByPosition(x, y int) (string, bool) {
	for _, id := range f.ids() {
		if f.connected[id].Bounds.Contains(x, y) {
			return id, true
		}
	}
	return "", false
}

type fakeRules []layout.ResolvedRule

func (f fakeRules) ActiveRules() []layout.ResolvedRule { return f }

// Two side-by-side monitors: a vertical one at the origin and a horizontal
// one to its right.
var (
	leftBounds  = platform.Rect{X: 0, Y: 0, Width: 1080, Height: 1920}
	rightBounds = platform.Rect{X: 1080, Y: 0, Width: 1920, Height: 1080}
)

func twoMonitors() *fakeMonitors {
	return newFakeMonitors(
		monitor.Connected{Monitor: monitor.Monitor{ID: "monitor_left", Name: "DISPLAY1 (1080×1920)"}, Bounds: leftBounds, Usable: leftBounds, Scale: 1},
		monitor.Connected{Monitor: monitor.Monitor{ID: "monitor_right", Name: "DISPLAY2 (1920×1080)"}, Bounds: rightBounds, Usable: rightBounds, Scale: 1},
	)
}

func paths(m map[int]string) func(int) (string, error) {
	return func(pid int) (string, error) {
		p, ok := m[pid]
		if !ok {
			return "", errors.New("access denied")
		}
		return p, nil
	}
}

type sleepRecorder struct {
	slept []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) { s.slept = append(s.slept, d) }

func newTestManager(b *fakeBackend, mons Monitors, rules RuleSource, pids map[int]string) (*Manager, *sleepRecorder) {
	rec := &sleepRecorder{}
	m := NewManager(b, mons, rules, Options{
		Settle:      DefaultSettle(),
		ProcessPath: paths(pids),
		Sleep:       rec.sleep,
	})
	return m, rec
}
