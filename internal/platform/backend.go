package platform

import "errors"

// WindowID is a platform-neutral window identifier (HWND on Windows, XID on X11).
type WindowID uint64

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether the point lies inside r. The right and bottom
// edges are exclusive.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Center returns the integer midpoint of r.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Display describes a physical display as reported by the OS.
type Display struct {
	// Device is the OS device name carrying the connector number,
	// e.g. `\\.\DISPLAY2` on Windows or `DISPLAY2` on X11.
	Device string
	// Output is the connector label when the OS exposes one (e.g. "HDMI-1").
	Output  string
	Bounds  Rect
	Usable  Rect
	Primary bool
	Scale   float64
}

// Window style bits, using the Win32 numbering. Backends for other window
// systems synthesize them from their own state.
const (
	StyleCaption    uint32 = 0x00C00000
	StyleThickFrame uint32 = 0x00040000
)

// ShowState is the window's placement state.
type ShowState int

const (
	ShowNormal ShowState = iota
	ShowMinimized
	ShowMaximized
)

func (s ShowState) String() string {
	switch s {
	case ShowMinimized:
		return "minimized"
	case ShowMaximized:
		return "maximized"
	default:
		return "normal"
	}
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID     WindowID
	PID    int
	Class  string
	Title  string
	Bounds Rect
	Style  uint32
	State  ShowState
}

// Key is a virtual key code.
type Key uint16

// KeyFullscreen is the conventional fullscreen toggle key (F11).
const KeyFullscreen Key = 0x7A

// ErrUnsupported is returned when no backend exists for the running OS.
var ErrUnsupported = errors.New("window system not supported on this platform")

// Backend abstracts window-system operations across platforms.
type Backend interface {
	// Displays enumerates attached displays.
	Displays() ([]Display, error)
	// Windows lists visible top-level windows.
	Windows() ([]WindowID, error)
	// Describe reads the current metadata, geometry and state of a window.
	Describe(id WindowID) (Window, error)
	// Restore un-minimizes and un-maximizes id. Where the window manager
	// owns fullscreen (X11) it clears that too; app-level fullscreen on
	// Windows is left to the fullscreen key.
	Restore(id WindowID) error
	Maximize(id WindowID) error
	MoveResize(id WindowID, bounds Rect) error
	Raise(id WindowID) error
	Foreground() (WindowID, error)
	// SetForeground asks the OS to give id input focus, working around
	// foreground-lock restrictions where the platform has them.
	SetForeground(id WindowID) error
	KeyDown(k Key) error
	KeyUp(k Key) error
	Close() error
}
