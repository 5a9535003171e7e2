package window

import (
	"fmt"

	"github.com/1broseidon/screenward/internal/platform"
)

// Verification is the outcome of re-reading style bits after a fullscreen
// toggle. The style-bit check is a heuristic, so a failed read is kept apart
// from a negative one.
type Verification string

const (
	VerifyNotAttempted Verification = "not_attempted"
	VerifyConfirmed    Verification = "confirmed"
	VerifyUnconfirmed  Verification = "unconfirmed"
	VerifyInconclusive Verification = "inconclusive"
)

// Operation names reported in RuleResult.Operations.
const (
	OpMove           = "move"
	OpMaximize       = "maximize"
	OpFullscreen     = "fullscreen"
	OpExitFullscreen = "exit_fullscreen"
	OpRestore        = "restore"
)

// RuleResult is the outcome of driving one window toward a chrome state.
type RuleResult struct {
	Changed                bool         `json:"changed"`
	Operations             []string     `json:"operations"`
	FullscreenVerification Verification `json:"fullscreen_verification"`
}

type observed struct {
	monitorID  string
	maximized  bool
	fullscreen bool
}

func (m *Manager) observe(id platform.WindowID) (observed, error) {
	raw, err := m.backend.Describe(id)
	if err != nil {
		return observed{}, err
	}
	o := observed{
		maximized:  raw.State == platform.ShowMaximized,
		fullscreen: IsFullscreen(raw.Style),
	}
	cx, cy := raw.Bounds.Center()
	o.monitorID, _ = m.monitors.ByPosition(cx, cy)
	return o, nil
}

func inDesiredState(o observed, monitorID string, maximize, fullscreen bool) bool {
	if o.monitorID != monitorID {
		return false
	}
	switch {
	case fullscreen:
		return o.fullscreen
	case maximize:
		return o.maximized && !o.fullscreen
	default:
		return !o.maximized && !o.fullscreen
	}
}

// ApplyRuleToWindow moves a window onto monitorID and brings it to the
// requested chrome state, issuing only the operations that are needed.
// fullscreen takes precedence over maximize.
func (m *Manager) ApplyRuleToWindow(id platform.WindowID, monitorID string, maximize, fullscreen bool) (RuleResult, error) {
	res := RuleResult{Operations: []string{}, FullscreenVerification: VerifyNotAttempted}

	target, ok := m.monitors.ConnectedMonitor(monitorID)
	if !ok {
		return res, fmt.Errorf("%w: %s", ErrMonitorNotConnected, monitorID)
	}

	cur, err := m.observe(id)
	if err != nil {
		return res, fmt.Errorf("read window state: %w", err)
	}
	if inDesiredState(cur, monitorID, maximize, fullscreen) {
		return res, nil
	}

	log := m.log.With("hwnd", uint64(id)).With("monitor_id", monitorID)

	moved := false
	if cur.monitorID != monitorID {
		if err := m.backend.Restore(id); err != nil {
			return res, fmt.Errorf("restore before move: %w", err)
		}
		if err := m.backend.MoveResize(id, target.Bounds); err != nil {
			return res, fmt.Errorf("move to %s: %w", monitorID, err)
		}
		res.add(OpMove)
		moved = true
		m.wait(m.settle.Move)
	}

	if cur, err = m.observe(id); err != nil {
		return res, fmt.Errorf("read window state: %w", err)
	}

	switch {
	case fullscreen && !cur.fullscreen:
		if !cur.maximized {
			if err := m.backend.Maximize(id); err != nil {
				return res, fmt.Errorf("maximize: %w", err)
			}
			res.add(OpMaximize)
			m.wait(m.settle.PreFullscreen)
		}
		if _, err := m.Toggle(id, m.settle.FullscreenWait); err != nil {
			return res, fmt.Errorf("fullscreen toggle: %w", err)
		}
		res.add(OpFullscreen)
		m.wait(m.settle.FullscreenVerify)
		res.FullscreenVerification = m.verifyFullscreen(id)
		if res.FullscreenVerification != VerifyConfirmed {
			log.Warn("fullscreen toggle not confirmed", "verification", string(res.FullscreenVerification))
		}

	case maximize && !fullscreen:
		if cur.fullscreen {
			if _, err := m.Toggle(id, m.settle.ToggleOff); err != nil {
				return res, fmt.Errorf("exit fullscreen: %w", err)
			}
			res.add(OpExitFullscreen)
		}
		if !cur.maximized || cur.fullscreen {
			if err := m.backend.Maximize(id); err != nil {
				return res, fmt.Errorf("maximize: %w", err)
			}
			res.add(OpMaximize)
		}

	case !maximize && !fullscreen:
		if cur.fullscreen {
			if _, err := m.Toggle(id, m.settle.ToggleOff); err != nil {
				return res, fmt.Errorf("exit fullscreen: %w", err)
			}
			res.add(OpExitFullscreen)
		}
		if cur.maximized && !moved {
			if err := m.backend.Restore(id); err != nil {
				return res, fmt.Errorf("restore: %w", err)
			}
			res.add(OpRestore)
		}
	}

	log.Debug("window rule applied", "operations", res.Operations)
	return res, nil
}

func (r *RuleResult) add(op string) {
	r.Operations = append(r.Operations, op)
	r.Changed = true
}

func (m *Manager) verifyFullscreen(id platform.WindowID) Verification {
	raw, err := m.backend.Describe(id)
	if err != nil {
		m.log.Debug("fullscreen verification read failed", "hwnd", uint64(id), "error", err.Error())
		return VerifyInconclusive
	}
	if IsFullscreen(raw.Style) {
		return VerifyConfirmed
	}
	return VerifyUnconfirmed
}
