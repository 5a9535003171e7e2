package monitor

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/platform"
)

// DisplaySource enumerates attached displays.
type DisplaySource interface {
	Displays() ([]platform.Display, error)
}

// Connected is a known monitor seen in the latest detection pass.
type Connected struct {
	Monitor
	Bounds platform.Rect `json:"bounds"`
	Usable platform.Rect `json:"usable"`
	Scale  float64       `json:"scale"`
}

// Status is a known monitor annotated with its connection state.
type Status struct {
	Monitor
	Connected bool `json:"connected"`
}

// RuntimeInfo is a connected monitor with its current DPI scale.
type RuntimeInfo struct {
	Monitor
	DPIScale float64 `json:"dpi_scale"`
}

// Manager tracks which known monitors are currently attached. Connection
// state is derived from the latest detection pass only.
type Manager struct {
	store *Store
	src   DisplaySource
	log   *logging.Logger

	mu        sync.RWMutex
	connected map[string]Connected
	order     []string
	lastKey   string
}

// NewManager creates a manager resolving displays from src through store.
func NewManager(store *Store, src DisplaySource, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.Nop()
	}
	return &Manager{
		store:     store,
		src:       src,
		log:       log.With("component", "monitor_manager"),
		connected: make(map[string]Connected),
	}
}

// Store returns the backing monitor store.
func (m *Manager) Store() *Store { return m.store }

// DisplayName builds the human-readable monitor name.
func DisplayName(d platform.Display) string {
	w, h := d.Bounds.Width, d.Bounds.Height
	if d.Device != "" {
		return fmt.Sprintf("%s (%d×%d)", d.Device, w, h)
	}
	position := fmt.Sprintf("at (%d, %d)", d.Bounds.X, d.Bounds.Y)
	if d.Bounds.X == 0 && d.Bounds.Y == 0 {
		position = "Primary"
	}
	return fmt.Sprintf("Monitor %s (%d×%d)", position, w, h)
}

// Detect queries the OS for attached displays, resolves each to a monitor
// id and replaces the connected set. It returns the detected ids.
func (m *Manager) Detect() ([]string, error) {
	displays, err := m.src.Displays()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate displays: %w", err)
	}

	data := make([]Data, len(displays))
	for i, d := range displays {
		data[i] = Data{
			Name:      DisplayName(d),
			Width:     d.Bounds.Width,
			Height:    d.Bounds.Height,
			X:         d.Bounds.X,
			Y:         d.Bounds.Y,
			IsPrimary: d.Primary,
		}
	}

	ids, resolveErr := m.store.ResolveAll(data)
	if resolveErr != nil {
		m.log.Warn("some displays could not be resolved", "error", resolveErr.Error())
	}

	connected := make(map[string]Connected, len(ids))
	var order, detected []string
	for i, id := range ids {
		if id == "" {
			continue
		}
		rec, ok := m.store.Monitor(id)
		if !ok {
			continue
		}
		connected[id] = Connected{
			Monitor: rec,
			Bounds:  displays[i].Bounds,
			Usable:  displays[i].Usable,
			Scale:   displays[i].Scale,
		}
		order = append(order, id)
		detected = append(detected, id)
	}

	sorted := append([]string(nil), detected...)
	sort.Strings(sorted)
	key := strings.Join(sorted, ",")

	m.mu.Lock()
	m.connected = connected
	m.order = order
	changed := key != m.lastKey
	m.lastKey = key
	m.mu.Unlock()

	if changed {
		m.log.Info(fmt.Sprintf("Detected %d monitors", len(sorted)), "monitor_ids", sorted)
	} else {
		m.log.Debug(fmt.Sprintf("Detected %d monitors", len(sorted)), "monitor_ids", sorted)
	}
	return detected, nil
}

// ConnectedIDs returns connected monitor ids in detection order.
func (m *Manager) ConnectedIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// IsConnected reports whether id was present in the latest detection pass.
func (m *Manager) IsConnected(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connected[id]
	return ok
}

// ConnectedMonitor returns the live record for a connected monitor.
func (m *Manager) ConnectedMonitor(id string) (Connected, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connected[id]
	return c, ok
}

// ConnectedMonitors returns all connected monitors in detection order.
func (m *Manager) ConnectedMonitors() []Connected {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Connected, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.connected[id])
	}
	return out
}

// ByPosition returns the connected monitor containing the point.
func (m *Manager) ByPosition(x, y int) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if m.connected[id].Bounds.Contains(x, y) {
			return id, true
		}
	}
	return "", false
}

// PrimaryID picks the primary monitor: the OS primary flag first, then the
// monitor at the origin, then the first detected.
func (m *Manager) PrimaryID() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if m.connected[id].IsPrimary {
			return id, true
		}
	}
	for _, id := range m.order {
		b := m.connected[id].Bounds
		if b.X == 0 && b.Y == 0 {
			return id, true
		}
	}
	if len(m.order) > 0 {
		return m.order[0], true
	}
	return "", false
}

// MonitorsWithStatus lists every known monitor with its connection state.
func (m *Manager) MonitorsWithStatus() []Status {
	known := m.store.Monitors()
	out := make([]Status, 0, len(known))
	for _, k := range known {
		out = append(out, Status{Monitor: k, Connected: m.IsConnected(k.ID)})
	}
	return out
}

// RuntimeInfo lists connected monitors with their DPI scale.
func (m *Manager) RuntimeInfo() []RuntimeInfo {
	var out []RuntimeInfo
	for _, c := range m.ConnectedMonitors() {
		rec, ok := m.store.Monitor(c.ID)
		if !ok {
			continue
		}
		scale := c.Scale
		if scale <= 0 {
			scale = 1.0
		}
		out = append(out, RuntimeInfo{Monitor: rec, DPIScale: scale})
	}
	return out
}
