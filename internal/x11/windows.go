package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xwindow"
)

const (
	stateFullscreen = "_NET_WM_STATE_FULLSCREEN"
	stateMaxVert    = "_NET_WM_STATE_MAXIMIZED_VERT"
	stateMaxHorz    = "_NET_WM_STATE_MAXIMIZED_HORZ"
	stateHidden     = "_NET_WM_STATE_HIDDEN"
)

// ErrNoXTest is returned by key injection when the XTEST extension is missing.
var ErrNoXTest = errors.New("XTEST extension not available")

// WindowState summarizes the _NET_WM_STATE atoms relevant to placement.
type WindowState struct {
	Fullscreen bool
	Maximized  bool
	Hidden     bool
}

// ClientWindows returns managed windows in stacking order, skipping docks,
// desktops and other non-application windows.
func (c *Connection) ClientWindows() ([]xproto.Window, error) {
	clients, err := ewmh.ClientListStackingGet(c.XUtil)
	if err != nil {
		clients, err = ewmh.ClientListGet(c.XUtil)
		if err != nil {
			return nil, fmt.Errorf("failed to read client list: %w", err)
		}
	}
	out := make([]xproto.Window, 0, len(clients))
	for _, w := range clients {
		if c.IsNormalWindow(w) {
			out = append(out, w)
		}
	}
	return out, nil
}

// Title prefers _NET_WM_NAME and falls back to WM_NAME.
func (c *Connection) Title(windowID xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && name != "" {
		return name
	}
	name, _ := icccm.WmNameGet(c.XUtil, windowID)
	return name
}

// Class returns the WM_CLASS class part, or the instance when no class is set.
func (c *Connection) Class(windowID xproto.Window) string {
	wc, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil || wc == nil {
		return ""
	}
	if wc.Class != "" {
		return wc.Class
	}
	return wc.Instance
}

// PID returns _NET_WM_PID, or 0 when the client does not publish it.
func (c *Connection) PID(windowID xproto.Window) uint32 {
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil {
		return 0
	}
	return uint32(pid)
}

// Geometry returns the frame geometry in root coordinates.
func (c *Connection) Geometry(windowID xproto.Window) (x, y, width, height int, err error) {
	win := xwindow.New(c.XUtil, windowID)
	rect, err := win.DecorGeometry()
	if err != nil {
		rect, err = win.Geometry()
		if err != nil {
			return 0, 0, 0, 0, err
		}
	}
	return rect.X(), rect.Y(), rect.Width(), rect.Height(), nil
}

// State reads _NET_WM_STATE.
func (c *Connection) State(windowID xproto.Window) (WindowState, error) {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return WindowState{}, err
	}
	var st WindowState
	var vert, horz bool
	for _, s := range states {
		switch s {
		case stateFullscreen:
			st.Fullscreen = true
		case stateMaxVert:
			vert = true
		case stateMaxHorz:
			horz = true
		case stateHidden:
			st.Hidden = true
		}
	}
	st.Maximized = vert && horz
	return st, nil
}

// Maximize asks the window manager to maximize the window in both directions.
func (c *Connection) Maximize(windowID xproto.Window) error {
	return ewmh.WmStateReqExtra(c.XUtil, windowID, ewmh.StateAdd, stateMaxVert, stateMaxHorz, 2)
}

// Restore clears the fullscreen and maximized states and unminimizes the
// window. Window managers pin fullscreen windows to their output, so a move
// only sticks once fullscreen is gone.
func (c *Connection) Restore(windowID xproto.Window) error {
	st, stErr := c.State(windowID)
	if stErr == nil && st.Fullscreen {
		if err := ewmh.WmStateReq(c.XUtil, windowID, ewmh.StateRemove, stateFullscreen); err != nil {
			return err
		}
	}
	if err := ewmh.WmStateReqExtra(c.XUtil, windowID, ewmh.StateRemove, stateMaxVert, stateMaxHorz, 2); err != nil {
		return err
	}
	if stErr == nil && st.Hidden {
		return ewmh.ActiveWindowReq(c.XUtil, windowID)
	}
	return nil
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// EWMH request first for WM compatibility, raw configure as fallback.
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height); err != nil {
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// Raise restacks the window above its siblings.
func (c *Connection) Raise(windowID xproto.Window) error {
	return xproto.ConfigureWindowChecked(c.XUtil.Conn(), windowID,
		xproto.ConfigWindowStackMode, []uint32{xproto.StackModeAbove}).Check()
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL", "_NET_WM_WINDOW_TYPE_DIALOG":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}

	return len(types) == 0
}

// GetActiveWindow returns _NET_ACTIVE_WINDOW.
func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}

// Activate requests focus for the window through the window manager.
func (c *Connection) Activate(windowID xproto.Window) error {
	return ewmh.ActiveWindowReq(c.XUtil, windowID)
}

// FakeKey injects a key press or release for the named keysym through XTEST.
func (c *Connection) FakeKey(keysym string, press bool) error {
	if !c.hasXTest {
		return ErrNoXTest
	}
	codes := keybind.StrToKeycodes(c.XUtil, keysym)
	if len(codes) == 0 {
		return fmt.Errorf("no keycode for %q", keysym)
	}
	typ := byte(xproto.KeyRelease)
	if press {
		typ = xproto.KeyPress
	}
	return xtest.FakeInputChecked(c.XUtil.Conn(), typ, byte(codes[0]), 0, c.Root, 0, 0, 0).Check()
}
