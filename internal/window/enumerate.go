package window

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/1broseidon/screenward/internal/platform"
)

func processExe(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Exe()
}

// exeBase returns the file name of a path in either separator style.
func exeBase(path string) string {
	if path == "" {
		return ""
	}
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return filepath.Base(path)
}

// Windows enumerates and classifies listable top-level windows. Windows that
// vanish or cannot be read mid-pass are omitted.
func (m *Manager) Windows() ([]Window, error) {
	ids, err := m.backend.Windows()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate windows: %w", err)
	}
	out := make([]Window, 0, len(ids))
	for _, id := range ids {
		w, err := m.describe(id)
		if err != nil {
			m.log.Debug("error reading window", "hwnd", uint64(id), "error", err.Error())
			continue
		}
		if !listable(w) {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (m *Manager) describe(id platform.WindowID) (Window, error) {
	raw, err := m.backend.Describe(id)
	if err != nil {
		return Window{}, err
	}
	w := Window{
		Handle:       id,
		Title:        raw.Title,
		ClassName:    raw.Class,
		PID:          raw.PID,
		IsMinimized:  raw.State == platform.ShowMinimized,
		IsMaximized:  raw.State == platform.ShowMaximized,
		IsFullscreen: IsFullscreen(raw.Style),
		Position:     raw.Bounds,
	}
	if raw.PID > 0 {
		if path, err := m.processPath(raw.PID); err == nil {
			w.ProcessPath = path
		}
	}
	w.ExeName = exeBase(w.ProcessPath)
	w.AppDisplayName = w.ExeName
	w.IsUWP = IsUWP(w.ClassName, w.ExeName)
	w.IsSystem = IsSystem(w.Title, w.ClassName, w.ExeName)
	cx, cy := raw.Bounds.Center()
	if id, ok := m.monitors.ByPosition(cx, cy); ok {
		w.MonitorID = id
	}
	return w, nil
}

// Focus brings a window to the foreground without applying rules.
func (m *Manager) Focus(id platform.WindowID) error {
	if id == 0 {
		return fmt.Errorf("invalid window handle")
	}
	raw, err := m.backend.Describe(id)
	if err != nil {
		return fmt.Errorf("window %d: %w", id, err)
	}
	if raw.State == platform.ShowMinimized {
		if err := m.backend.Restore(id); err != nil {
			m.log.Debug("restore before focus failed", "hwnd", uint64(id), "error", err.Error())
		}
	}
	if err := m.backend.Raise(id); err != nil {
		m.log.Debug("raise failed", "hwnd", uint64(id), "error", err.Error())
	}
	return m.backend.SetForeground(id)
}
