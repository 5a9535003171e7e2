//go:build windows

package platform

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

var (
	user32                       = windows.NewLazySystemDLL("user32.dll")
	procEnumDisplayMonitors      = user32.NewProc("EnumDisplayMonitors")
	procGetWindowTextW           = user32.NewProc("GetWindowTextW")
	procGetWindowTextLengthW     = user32.NewProc("GetWindowTextLengthW")
	shcore                       = windows.NewLazySystemDLL("shcore.dll")
	procGetScaleFactorForMonitor = shcore.NewProc("GetScaleFactorForMonitor")
)

// monitorInfoEx mirrors MONITORINFOEXW.
type monitorInfoEx struct {
	win.MONITORINFO
	SzDevice [win.CCHDEVICENAME]uint16
}

// Callbacks are created once; windows.NewCallback slots are never freed.
var (
	enumMu         sync.Mutex
	enumWindows    []WindowID
	enumMonitors   []win.HMONITOR
	enumWindowsCb  = windows.NewCallback(collectWindow)
	enumMonitorsCb = windows.NewCallback(collectMonitor)
)

func collectWindow(hwnd windows.HWND, _ uintptr) uintptr {
	if win.IsWindowVisible(win.HWND(hwnd)) {
		enumWindows = append(enumWindows, WindowID(hwnd))
	}
	return 1
}

func collectMonitor(hmon win.HMONITOR, _ win.HDC, _ *win.RECT, _ uintptr) uintptr {
	enumMonitors = append(enumMonitors, hmon)
	return 1
}

// WindowsBackend drives the Win32 API.
type WindowsBackend struct{}

var _ Backend = (*WindowsBackend)(nil)

// New opens the default backend for this platform.
func New() (Backend, error) {
	return &WindowsBackend{}, nil
}

func (b *WindowsBackend) Displays() ([]Display, error) {
	enumMu.Lock()
	enumMonitors = enumMonitors[:0]
	r, _, err := procEnumDisplayMonitors.Call(0, 0, enumMonitorsCb, 0)
	handles := append([]win.HMONITOR(nil), enumMonitors...)
	enumMu.Unlock()
	if r == 0 {
		return nil, fmt.Errorf("EnumDisplayMonitors: %w", err)
	}

	displays := make([]Display, 0, len(handles))
	for _, h := range handles {
		var mi monitorInfoEx
		mi.CbSize = uint32(unsafe.Sizeof(mi))
		if !win.GetMonitorInfo(h, (*win.MONITORINFO)(unsafe.Pointer(&mi))) {
			continue
		}
		displays = append(displays, Display{
			Device:  windows.UTF16ToString(mi.SzDevice[:]),
			Bounds:  rectFromWin(mi.RcMonitor),
			Usable:  rectFromWin(mi.RcWork),
			Primary: mi.DwFlags&win.MONITORINFOF_PRIMARY != 0,
			Scale:   scaleFor(h),
		})
	}
	return displays, nil
}

// scaleFor returns the monitor scale factor, or 1.0 when shcore is unavailable.
func scaleFor(h win.HMONITOR) float64 {
	if procGetScaleFactorForMonitor.Find() != nil {
		return 1.0
	}
	var pct uint32
	r, _, _ := procGetScaleFactorForMonitor.Call(uintptr(h), uintptr(unsafe.Pointer(&pct)))
	if r != 0 || pct == 0 {
		return 1.0
	}
	return float64(pct) / 100.0
}

func rectFromWin(r win.RECT) Rect {
	return Rect{
		X:      int(r.Left),
		Y:      int(r.Top),
		Width:  int(r.Right - r.Left),
		Height: int(r.Bottom - r.Top),
	}
}

func (b *WindowsBackend) Windows() ([]WindowID, error) {
	enumMu.Lock()
	defer enumMu.Unlock()
	enumWindows = enumWindows[:0]
	if err := windows.EnumWindows(enumWindowsCb, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return append([]WindowID(nil), enumWindows...), nil
}

func (b *WindowsBackend) Describe(id WindowID) (Window, error) {
	hwnd := win.HWND(id)
	var rc win.RECT
	if !win.GetWindowRect(hwnd, &rc) {
		return Window{}, fmt.Errorf("window %#x: GetWindowRect failed", uint64(id))
	}

	var pid uint32
	win.GetWindowThreadProcessId(hwnd, &pid)

	w := Window{
		ID:     id,
		PID:    int(pid),
		Class:  className(hwnd),
		Title:  windowText(hwnd),
		Bounds: rectFromWin(rc),
		Style:  uint32(win.GetWindowLong(hwnd, win.GWL_STYLE)),
		State:  ShowNormal,
	}

	var wp win.WINDOWPLACEMENT
	wp.Length = uint32(unsafe.Sizeof(wp))
	if win.GetWindowPlacement(hwnd, &wp) {
		switch wp.ShowCmd {
		case win.SW_SHOWMAXIMIZED:
			w.State = ShowMaximized
		case win.SW_SHOWMINIMIZED:
			w.State = ShowMinimized
		}
	}
	if win.IsIconic(hwnd) {
		w.State = ShowMinimized
	}
	return w, nil
}

func className(hwnd win.HWND) string {
	buf := make([]uint16, 256)
	n, err := win.GetClassName(hwnd, &buf[0], len(buf))
	if err != nil || n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

func windowText(hwnd win.HWND) string {
	n, _, _ := procGetWindowTextLengthW.Call(uintptr(hwnd))
	if n == 0 {
		return ""
	}
	buf := make([]uint16, n+1)
	r, _, _ := procGetWindowTextW.Call(uintptr(hwnd), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	return windows.UTF16ToString(buf[:r])
}

func (b *WindowsBackend) Restore(id WindowID) error {
	win.ShowWindow(win.HWND(id), win.SW_RESTORE)
	return nil
}

func (b *WindowsBackend) Maximize(id WindowID) error {
	win.ShowWindow(win.HWND(id), win.SW_MAXIMIZE)
	return nil
}

func (b *WindowsBackend) MoveResize(id WindowID, r Rect) error {
	if !win.MoveWindow(win.HWND(id), int32(r.X), int32(r.Y), int32(r.Width), int32(r.Height), true) {
		return fmt.Errorf("window %#x: MoveWindow failed", uint64(id))
	}
	return nil
}

func (b *WindowsBackend) Raise(id WindowID) error {
	if !win.BringWindowToTop(win.HWND(id)) {
		return fmt.Errorf("window %#x: BringWindowToTop failed", uint64(id))
	}
	return nil
}

func (b *WindowsBackend) Foreground() (WindowID, error) {
	h := win.GetForegroundWindow()
	if h == 0 {
		return 0, errors.New("no foreground window")
	}
	return WindowID(h), nil
}

// SetForeground attaches our input queue to the current foreground thread so
// the foreground-lock timeout does not reject the request.
func (b *WindowsBackend) SetForeground(id WindowID) error {
	hwnd := win.HWND(id)
	fg := win.GetForegroundWindow()
	fgThread := win.GetWindowThreadProcessId(fg, nil)
	self := win.GetCurrentThreadId()

	attached := false
	if fgThread != 0 && fgThread != self {
		attached = win.AttachThreadInput(int32(self), int32(fgThread), true)
	}
	ok := win.SetForegroundWindow(hwnd)
	win.SetActiveWindow(hwnd)
	if attached {
		win.AttachThreadInput(int32(self), int32(fgThread), false)
	}
	if !ok {
		return fmt.Errorf("window %#x: SetForegroundWindow refused", uint64(id))
	}
	return nil
}

func (b *WindowsBackend) KeyDown(k Key) error { return sendKey(k, 0) }

func (b *WindowsBackend) KeyUp(k Key) error { return sendKey(k, win.KEYEVENTF_KEYUP) }

func sendKey(k Key, flags uint32) error {
	in := win.KEYBD_INPUT{
		Type: win.INPUT_KEYBOARD,
		Ki:   win.KEYBDINPUT{WVk: uint16(k), DwFlags: flags},
	}
	if win.SendInput(1, unsafe.Pointer(&in), int32(unsafe.Sizeof(in))) != 1 {
		return fmt.Errorf("SendInput failed for key 0x%02X", uint16(k))
	}
	return nil
}

func (b *WindowsBackend) Close() error { return nil }
