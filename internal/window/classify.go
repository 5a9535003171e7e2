package window

import (
	"strings"

	"github.com/1broseidon/screenward/internal/platform"
)

var (
	systemClassNames = map[string]bool{
		"Progman":                true,
		"WorkerW":                true,
		"Shell_TrayWnd":          true,
		"Shell_SecondaryTrayWnd": true,
	}
	systemTitles = map[string]bool{
		"Program Manager": true,
	}
	systemProcessNames = map[string]bool{
		"SystemSettings.exe":          true,
		"SearchUI.exe":                true,
		"StartMenuExperienceHost.exe": true,
		"ShellExperienceHost.exe":     true,
		"RuntimeBroker.exe":           true,
		"dwm.exe":                     true,
		"sihost.exe":                  true,
		"ctfmon.exe":                  true,
		"taskhostw.exe":               true,
	}
	// Hidden from listings only. ApplicationFrameHost stays visible so UWP
	// apps can be listed.
	excludedExeNames = map[string]bool{
		"SystemSettings.exe":      true,
		"TextInputHost.exe":       true,
		"HxOutlook.exe":           true,
		"ShellExperienceHost.exe": true,
	}
	uwpClassNames = map[string]bool{
		"ApplicationFrameWindow":     true,
		"Windows.UI.Core.CoreWindow": true,
	}
)

// IsSystem reports desktop, shell and other OS-owned windows.
func IsSystem(title, className, exeName string) bool {
	if t := strings.TrimSpace(title); t != "" && systemTitles[t] {
		return true
	}
	return systemClassNames[className] || systemProcessNames[exeName]
}

// IsUWP reports windows hosted by the UWP application frame.
func IsUWP(className, exeName string) bool {
	return uwpClassNames[className] || strings.EqualFold(exeName, "applicationframehost.exe")
}

// IsFullscreen applies the style-bit heuristic: a window is fullscreen when
// it has neither a caption nor a sizing border. Maximized windows keep both.
// Min/maximize box bits stay set on many fullscreen apps and are ignored.
// Unusual window chrome can produce false results either way.
func IsFullscreen(style uint32) bool {
	return style&platform.StyleCaption == 0 && style&platform.StyleThickFrame == 0
}

// listable applies the listing filter.
func listable(w Window) bool {
	if strings.Contains(w.Title, MarkerTitle) {
		return false
	}
	if w.ExeName != "" && excludedExeNames[w.ExeName] {
		return false
	}
	if strings.TrimSpace(w.Title) == "" && !w.IsSystem {
		return false
	}
	return true
}
