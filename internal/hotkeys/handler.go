// Package hotkeys binds global X11 key sequences to daemon actions.
package hotkeys

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/platform"
)

// ErrUnsupported is returned for backends without an X11 connection.
var ErrUnsupported = errors.New("global hotkeys need an X11 backend")

// x11Accessor is implemented by backends that expose X11 internals.
type x11Accessor interface {
	XUtil() *xgbutil.XUtil
	RootWindow() xproto.Window
}

// Handler manages global keyboard shortcuts.
type Handler struct {
	xu   *xgbutil.XUtil
	root xproto.Window
	log  *logging.Logger
}

var ignoreModsOnce sync.Once

// NewHandler creates a handler on the backend's X connection.
func NewHandler(backend platform.Backend, log *logging.Logger) (*Handler, error) {
	accessor, ok := backend.(x11Accessor)
	if !ok || accessor.XUtil() == nil {
		return nil, ErrUnsupported
	}
	if log == nil {
		log = logging.Nop()
	}
	xu := accessor.XUtil()

	ignoreModsOnce.Do(func() {
		configureIgnoreMods(xu)
	})

	return &Handler{
		xu:   xu,
		root: accessor.RootWindow(),
		log:  log.With("component", "hotkeys"),
	}, nil
}

// Register binds keySequence (for example "Mod4-Shift-a") to callback.
func (h *Handler) Register(keySequence string, callback func()) error {
	if _, _, err := keybind.ParseString(h.xu, keySequence); err != nil {
		return fmt.Errorf("invalid key sequence %q: %w", keySequence, err)
	}
	err := keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		h.log.Debug("hotkey triggered", "keys", keySequence)
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
	if err != nil {
		return fmt.Errorf("failed to grab %q: %w", keySequence, err)
	}
	h.log.Info("hotkey registered", "keys", keySequence)
	return nil
}

// Run dispatches key events until ctx is done.
func (h *Handler) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		xevent.Main(h.xu)
	}()
	select {
	case <-ctx.Done():
		xevent.Quit(h.xu)
	case <-done:
	}
}

// ApplyBinding runs apply on every press, dropping presses that arrive while
// a previous run is still in flight.
func ApplyBinding(apply func() error, log *logging.Logger) func() {
	var busy sync.Mutex
	return func() {
		if !busy.TryLock() {
			return
		}
		go func() {
			defer busy.Unlock()
			if err := apply(); err != nil {
				log.Error("hotkey apply failed", err)
			}
		}()
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := make(map[uint16]struct{})
	add := func(mask uint16) {
		unique[mask] = struct{}{}
	}

	add(0)
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}

	for _, mask := range modCombinations(base) {
		add(mask)
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}

	xevent.IgnoreMods = ignore
}

// modCombinations returns the OR of every non-empty subset of base.
func modCombinations(base []uint16) []uint16 {
	var out []uint16
	for subset := 1; subset < (1 << len(base)); subset++ {
		var mask uint16
		for bit := range base {
			if subset&(1<<bit) != 0 {
				mask |= base[bit]
			}
		}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
