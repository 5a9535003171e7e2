// Package cli renders daemon responses for the terminal and hosts the
// interactive rule form.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/screenward/internal/layout"
	"github.com/1broseidon/screenward/internal/monitor"
	"github.com/1broseidon/screenward/internal/service"
	"github.com/1broseidon/screenward/internal/window"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(18).Align(lipgloss.Right).PaddingRight(2)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)

// Printer writes human readable output, styled only when writing to a
// terminal.
type Printer struct {
	w      io.Writer
	styled bool
}

// NewPrinter styles output when w is a terminal.
func NewPrinter(w io.Writer) *Printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, styled: styled}
}

// NewPlainPrinter never styles output.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *Printer) Header(text string) {
	fmt.Fprintln(p.w, p.render(headerStyle, text))
}

// Row prints an aligned label/value pair.
func (p *Printer) Row(label, value string) {
	if p.styled {
		fmt.Fprintln(p.w, labelStyle.Render(label)+valueStyle.Render(value))
		return
	}
	fmt.Fprintf(p.w, "%-18s %s\n", label+":", value)
}

func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *Printer) Dim(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(dimStyle, fmt.Sprintf(format, args...)))
}

func (p *Printer) OK(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(okStyle, fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(warnStyle, fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(errStyle, fmt.Sprintf(format, args...)))
}

// JSON writes v indented, for --json output and scripting.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Status prints the service status.
func (p *Printer) Status(st *service.Status) {
	p.Header("screenward daemon")
	state := string(st.Status)
	switch st.Status {
	case service.StateRunning:
		state = p.render(okStyle, state)
	case service.StateError:
		state = p.render(errStyle, state)
	}
	if p.styled {
		fmt.Fprintln(p.w, labelStyle.Render("Status")+state)
	} else {
		p.Row("Status", state)
	}
	p.Row("Active layout", orNone(st.ActiveLayout))
	p.Row("Monitors", strconv.Itoa(st.Monitors))
	lastRun := "never"
	if st.LastRun != nil {
		lastRun = st.LastRun.Local().Format(time.DateTime)
	}
	p.Row("Last run", lastRun)
	p.Row("Rules applied", strconv.Itoa(st.RulesApplied))
	p.Row("Errors", strconv.Itoa(st.Errors))
	if st.ErrorMessage != "" {
		p.Row("Last error", st.ErrorMessage)
	}
}

// ApplySummary prints the outcome of a rule pass.
func (p *Printer) ApplySummary(s *window.ApplySummary) {
	p.Line("Applied %d, skipped %d (no monitor), %d (no window), failed %d",
		s.Applied, s.SkippedNoMonitor, s.SkippedNoWindow, s.Failed)
	for _, d := range s.Details {
		line := fmt.Sprintf("  %-14s %s", d.Result, d.RuleID)
		if d.Window != "" {
			line += "  " + d.Window
		}
		if len(d.Operations) > 0 {
			line += "  [" + strings.Join(d.Operations, ", ") + "]"
		}
		if d.Message != "" {
			line += "  " + d.Message
		}
		switch d.Result {
		case window.ResultApplied:
			p.OK("%s", line)
		case window.ResultError:
			p.Error("%s", line)
		default:
			p.Dim("%s", line)
		}
	}
}

// Monitors prints known monitors, connected ones first.
func (p *Printer) Monitors(mons []monitor.Status) {
	if len(mons) == 0 {
		p.Dim("No monitors known yet")
		return
	}
	sorted := append([]monitor.Status(nil), mons...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Connected && !sorted[j].Connected
	})
	for _, m := range sorted {
		mark := p.render(dimStyle, "disconnected")
		if m.Connected {
			mark = p.render(okStyle, "connected")
		}
		primary := ""
		if m.IsPrimary {
			primary = " primary"
		}
		p.Line("%s  %s  at (%d, %d)  %s%s", m.ID, m.Name, m.X, m.Y, mark, primary)
	}
}

// Layouts prints the layout files, marking the active one.
func (p *Printer) Layouts(infos []layout.Info, active string) {
	if len(infos) == 0 {
		p.Dim("No layouts found")
		return
	}
	for _, in := range infos {
		marker := "  "
		if in.Name == active {
			marker = p.render(okStyle, "* ")
		}
		p.Line("%s%-20s %d screen(s)  %s", marker, in.Name, in.TotalScreens, p.render(dimStyle, in.Description))
	}
}

// Preview prints whether a layout could be activated.
func (p *Printer) Preview(pv *layout.Preview) {
	p.Header(pv.Name)
	if pv.Description != "" {
		p.Dim("%s", pv.Description)
	}
	p.Row("File", pv.FileName)
	p.Row("Rules", strconv.Itoa(pv.RulesCount))
	p.Row("Requires", requirementSummary(pv.ScreenRequirements))
	p.Row("Current", layout.ScreenSummary(pv.CurrentScreenConfig))
	if pv.CanApply {
		p.OK("Can be activated")
	} else {
		p.Warn("Cannot be activated: %s", pv.Reason)
	}
}

func requirementSummary(r layout.Requirements) string {
	parts := make([]string, 0, len(r.Screens))
	for _, s := range r.Screens {
		parts = append(parts, fmt.Sprintf("%d:%s", s.DisplayNumber, s.Orientation))
	}
	return fmt.Sprintf("%d screen(s) %s", r.TotalScreens, strings.Join(parts, " "))
}

// ActiveLayout prints the active layout and its display mapping.
func (p *Printer) ActiveLayout(info *layout.ActiveInfo) {
	if info == nil {
		p.Dim("No active layout")
		return
	}
	p.Header(info.Name)
	p.Row("File", info.FileName)
	p.Row("Activated", info.ActivatedAt.Local().Format(time.DateTime))
	p.Row("Rules", strconv.Itoa(info.RulesCount))
	p.Row("Screens", info.ScreenSummary)
	nums := make([]int, 0, len(info.DisplayMap))
	for n := range info.DisplayMap {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	for _, n := range nums {
		p.Row(fmt.Sprintf("Display %d", n), info.DisplayMap[n])
	}
}

// Rules prints resolved rules of the active layout.
func (p *Printer) Rules(rules []layout.ResolvedRule) {
	if len(rules) == 0 {
		p.Dim("No active rules")
		return
	}
	for _, r := range rules {
		p.Line("%s  %s=%q -> %s%s", r.RuleID, r.MatchType, r.MatchValue,
			r.TargetMonitorID, chrome(r.Maximize, r.Fullscreen))
	}
}

func chrome(maximize, fullscreen bool) string {
	switch {
	case fullscreen:
		return " fullscreen"
	case maximize:
		return " maximized"
	default:
		return ""
	}
}

// Windows prints a window listing.
func (p *Printer) Windows(cache *service.WindowCache) {
	if len(cache.Windows) == 0 {
		p.Dim("No windows")
		return
	}
	for _, w := range cache.Windows {
		state := ""
		switch {
		case w.IsFullscreen:
			state = " fullscreen"
		case w.IsMaximized:
			state = " maximized"
		case w.IsMinimized:
			state = " minimized"
		}
		p.Line("%-10d %-20s %-14s %s%s", uint64(w.Handle), w.ExeName, orNone(w.MonitorID), w.Title, p.render(dimStyle, state))
	}
	p.Dim("snapshot age %dms", cache.AgeMS)
}

// Screens prints the numbered screen configuration.
func (p *Printer) Screens(screens []layout.ScreenConfig, summary string) {
	p.Header(summary)
	for _, s := range screens {
		p.Line("  %d  %-10s %dx%d  %s  %s", s.DisplayNumber, s.Orientation, s.Width, s.Height, s.MonitorID, p.render(dimStyle, s.Name))
	}
}

// Settings prints the global settings.
func (p *Printer) Settings(s *monitor.Settings) {
	def := ""
	if s.DefaultLayout != nil {
		def = *s.DefaultLayout
	}
	p.Row("Default layout", orNone(def))
	p.Row("Center mouse", yesNo(s.CenterMouseOnSwitch))
}
