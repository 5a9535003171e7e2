//go:build linux

package platform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/1broseidon/screenward/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// LinuxBackend wraps an X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// New opens the default backend for this platform.
func New() (Backend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// XUtil exposes the X connection for hotkey grabs.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, errors.New("x11 connection is not initialized")
	}
	return b.conn, nil
}

// Displays returns all active RandR outputs. Device names follow the output
// index so that fingerprints stay stable while the cabling does.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	outputs, err := conn.GetOutputs()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(outputs, func(i, j int) bool { return outputs[i].Index < outputs[j].Index })

	displays := make([]Display, 0, len(outputs))
	for _, o := range outputs {
		displays = append(displays, Display{
			Device:  fmt.Sprintf("DISPLAY%d", o.Index),
			Output:  o.Name,
			Bounds:  Rect{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height},
			Usable:  Rect{X: o.UsableX, Y: o.UsableY, Width: o.UsableWidth, Height: o.UsableHeight},
			Primary: o.Primary,
			Scale:   1.0,
		})
	}
	return displays, nil
}

// Windows lists managed application windows in stacking order.
func (b *LinuxBackend) Windows() ([]WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	clients, err := conn.ClientWindows()
	if err != nil {
		return nil, err
	}
	ids := make([]WindowID, 0, len(clients))
	for _, c := range clients {
		ids = append(ids, WindowID(c))
	}
	return ids, nil
}

// Describe maps EWMH state onto the Win32-style style bits and show state.
func (b *LinuxBackend) Describe(id WindowID) (Window, error) {
	conn, err := b.connection()
	if err != nil {
		return Window{}, err
	}
	xid := xproto.Window(id)
	x, y, w, h, err := conn.Geometry(xid)
	if err != nil {
		return Window{}, fmt.Errorf("window %d: %w", id, err)
	}
	win := Window{
		ID:     id,
		PID:    int(conn.PID(xid)),
		Class:  conn.Class(xid),
		Title:  conn.Title(xid),
		Bounds: Rect{X: x, Y: y, Width: w, Height: h},
		Style:  StyleCaption | StyleThickFrame,
		State:  ShowNormal,
	}
	st, err := conn.State(xid)
	if err != nil {
		return win, nil
	}
	if st.Fullscreen {
		win.Style = 0
	}
	switch {
	case st.Hidden:
		win.State = ShowMinimized
	case st.Maximized:
		win.State = ShowMaximized
	}
	return win, nil
}

func (b *LinuxBackend) Restore(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.Restore(xproto.Window(id))
}

func (b *LinuxBackend) Maximize(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.Maximize(xproto.Window(id))
}

func (b *LinuxBackend) MoveResize(id WindowID, r Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveResizeWindow(xproto.Window(id), r.X, r.Y, r.Width, r.Height)
}

func (b *LinuxBackend) Raise(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.Raise(xproto.Window(id))
}

func (b *LinuxBackend) Foreground() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	w, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowID(w), nil
}

// SetForeground sends a _NET_ACTIVE_WINDOW request. EWMH window managers
// honour it without the foreground-lock dance Windows requires.
func (b *LinuxBackend) SetForeground(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.Activate(xproto.Window(id))
}

func (b *LinuxBackend) KeyDown(k Key) error { return b.fakeKey(k, true) }

func (b *LinuxBackend) KeyUp(k Key) error { return b.fakeKey(k, false) }

func (b *LinuxBackend) fakeKey(k Key, press bool) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	sym, ok := keysyms[k]
	if !ok {
		return fmt.Errorf("no keysym for virtual key 0x%02X", uint16(k))
	}
	return conn.FakeKey(sym, press)
}

// keysyms maps the virtual keys we inject to X keysym names.
var keysyms = map[Key]string{
	KeyFullscreen: "F11",
}

func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
	return nil
}
