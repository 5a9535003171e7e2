package window

import (
	"fmt"
	"time"

	"github.com/1broseidon/screenward/internal/platform"
)

// ToggleResult reports how the focus phase of a toggle went. The key is sent
// even when focus could not be taken.
type ToggleResult struct {
	Focused  bool `json:"focused"`
	Attempts int  `json:"attempts"`
}

// Toggle sends the fullscreen key to a window. The OS never confirms the
// toggle; callers re-read the style bits after wait has elapsed.
func (m *Manager) Toggle(id platform.WindowID, wait time.Duration) (ToggleResult, error) {
	orig, err := m.backend.Foreground()
	if err != nil {
		m.log.Debug("could not read foreground window", "error", err.Error())
		orig = 0
	}

	res := m.takeFocus(id)
	if !res.Focused {
		m.log.Warn("could not focus window before fullscreen toggle", "hwnd", uint64(id), "attempts", res.Attempts)
	}

	if err := m.backend.KeyDown(platform.KeyFullscreen); err != nil {
		return res, fmt.Errorf("fullscreen key down: %w", err)
	}
	m.wait(m.settle.KeyHold)
	if err := m.backend.KeyUp(platform.KeyFullscreen); err != nil {
		return res, fmt.Errorf("fullscreen key up: %w", err)
	}

	m.wait(wait)

	if orig != 0 && orig != id {
		if err := m.backend.SetForeground(orig); err != nil {
			m.log.Debug("could not restore foreground window", "hwnd", uint64(orig), "error", err.Error())
		}
	}
	return res, nil
}

func (m *Manager) takeFocus(id platform.WindowID) ToggleResult {
	var res ToggleResult
	for attempt := 1; attempt <= m.settle.FocusAttempts; attempt++ {
		res.Attempts = attempt
		if err := m.backend.SetForeground(id); err != nil {
			m.log.Debug("set foreground failed", "hwnd", uint64(id), "attempt", attempt, "error", err.Error())
		}
		m.wait(m.settle.FocusAttempt)
		if fg, err := m.backend.Foreground(); err == nil && fg == id {
			res.Focused = true
			return res
		}
		if attempt < m.settle.FocusAttempts {
			m.wait(m.settle.FocusRetry)
		}
	}
	return res
}
