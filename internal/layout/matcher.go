package layout

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/monitor"
)

var displayPattern = regexp.MustCompile(`DISPLAY(\d+)`)

// ScreenConfig is one connected monitor placed in its display slot.
type ScreenConfig struct {
	DisplayNumber int         `json:"display_number"`
	Orientation   Orientation `json:"orientation"`
	MonitorID     string      `json:"monitor_id"`
	Width         int         `json:"width"`
	Height        int         `json:"height"`
	Name          string      `json:"name"`
}

// MonitorSource lists the currently connected monitors.
type MonitorSource interface {
	ConnectedMonitors() []monitor.Connected
}

// ExtractDisplayNumber parses the DISPLAY# connector number from a monitor name.
func ExtractDisplayNumber(name string) (int, bool) {
	m := displayPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// OrientationOf classifies a resolution. Square screens count as vertical.
func OrientationOf(width, height int) Orientation {
	if width > height {
		return Horizontal
	}
	return Vertical
}

// Matcher maps connected monitors onto display slots.
type Matcher struct {
	src MonitorSource
	log *logging.Logger
}

// NewMatcher creates a matcher over src.
func NewMatcher(src MonitorSource, log *logging.Logger) *Matcher {
	if log == nil {
		log = logging.Nop()
	}
	return &Matcher{src: src, log: log.With("component", "layout_matcher")}
}

// ScreenConfiguration returns connected monitors with a resolvable display
// number, sorted by that number.
func (m *Matcher) ScreenConfiguration() []ScreenConfig {
	var configs []ScreenConfig
	for _, c := range m.src.ConnectedMonitors() {
		n, ok := ExtractDisplayNumber(c.Name)
		if !ok {
			m.log.Warn("skipping monitor without DISPLAY number", "monitor_id", c.ID, "name", c.Name)
			continue
		}
		configs = append(configs, ScreenConfig{
			DisplayNumber: n,
			Orientation:   OrientationOf(c.Width, c.Height),
			MonitorID:     c.ID,
			Width:         c.Width,
			Height:        c.Height,
			Name:          c.Name,
		})
	}
	sort.SliceStable(configs, func(i, j int) bool { return configs[i].DisplayNumber < configs[j].DisplayNumber })
	m.log.Debug("screen configuration", "summary", ScreenSummary(configs))
	return configs
}

// MatchesRequirements checks the configuration against a layout's
// requirements and explains the first mismatch.
func MatchesRequirements(current []ScreenConfig, req Requirements) (bool, string) {
	if len(current) != req.TotalScreens {
		return false, fmt.Sprintf("Need exactly %d screen(s), but %d connected", req.TotalScreens, len(current))
	}
	for _, want := range req.Screens {
		var found *ScreenConfig
		for i := range current {
			if current[i].DisplayNumber == want.DisplayNumber {
				found = &current[i]
				break
			}
		}
		if found == nil {
			return false, fmt.Sprintf("DISPLAY%d not found (required for layout)", want.DisplayNumber)
		}
		if found.Orientation != want.Orientation {
			return false, fmt.Sprintf("DISPLAY%d is %s, but layout needs %s", want.DisplayNumber, found.Orientation, want.Orientation)
		}
	}
	return true, "All requirements met"
}

// BuildDisplayMap projects the configuration to display number -> monitor id.
func BuildDisplayMap(current []ScreenConfig) map[int]string {
	out := make(map[int]string, len(current))
	for _, s := range current {
		out[s.DisplayNumber] = s.MonitorID
	}
	return out
}

// ScreenSummary renders the configuration for humans.
func ScreenSummary(current []ScreenConfig) string {
	if len(current) == 0 {
		return "No screens detected"
	}
	parts := make([]string, 0, len(current))
	for _, s := range current {
		parts = append(parts, fmt.Sprintf("DISPLAY%d (%s, %dx%d)", s.DisplayNumber, s.Orientation, s.Width, s.Height))
	}
	return fmt.Sprintf("%d screen(s): %s", len(current), strings.Join(parts, ", "))
}
