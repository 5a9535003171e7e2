package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1broseidon/screenward/internal/fsutil"
	"github.com/1broseidon/screenward/internal/logging"
)

// Author is recorded in the metadata of layouts created from the live setup.
const Author = "screenward"

// Info summarizes a layout file for listings.
type Info struct {
	Name         string `json:"name"`
	FileName     string `json:"file_name"`
	FilePath     string `json:"file_path"`
	Description  string `json:"description"`
	TotalScreens int    `json:"total_screens"`
}

// Preview describes whether a layout could be activated right now.
type Preview struct {
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	FileName            string         `json:"file_name"`
	CanApply            bool           `json:"can_apply"`
	Reason              string         `json:"reason"`
	ScreenRequirements  Requirements   `json:"screen_requirements"`
	CurrentScreenConfig []ScreenConfig `json:"current_screen_config"`
	RulesCount          int            `json:"rules_count"`
}

// ActiveInfo describes the active layout.
type ActiveInfo struct {
	Name          string         `json:"name"`
	FileName      string         `json:"file_name"`
	ActivatedAt   time.Time      `json:"activated_at"`
	RulesCount    int            `json:"rules_count"`
	DisplayMap    map[int]string `json:"display_map"`
	ScreenSummary string         `json:"screen_summary"`
	Data          Layout         `json:"data"`
}

// Activation reports a successful activation.
type Activation struct {
	Layout     string `json:"layout"`
	RulesCount int    `json:"rules_count"`
	Message    string `json:"message"`
}

// Created reports a layout file written from the live setup.
type Created struct {
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
	Message  string `json:"message"`
}

// RuleInput is a rule to add to or update in a layout.
type RuleInput struct {
	MatchType     MatchType `json:"match_type"`
	MatchValue    string    `json:"match_value"`
	TargetDisplay int       `json:"target_display"`
	Fullscreen    bool      `json:"fullscreen"`
	Maximize      bool      `json:"maximize"`
}

// RuleChange reports the outcome of a rule edit.
type RuleChange struct {
	RuleID  string `json:"rule_id"`
	Created bool   `json:"created"`
	Message string `json:"message"`
	// Active is set when the edited layout is the active one and its rules
	// were swapped in place.
	Active bool `json:"active"`
}

type activeLayout struct {
	name        string
	fileName    string
	data        Layout
	displayMap  map[int]string
	activatedAt time.Time
}

// Manager owns the layouts directory and the single active-layout slot.
type Manager struct {
	dir     string
	matcher *Matcher
	log     *logging.Logger

	// fileMu serializes read-modify-write cycles on layout files. It is
	// taken before mu.
	fileMu sync.Mutex

	mu     sync.Mutex
	active *activeLayout

	now       func() time.Time
	newRuleID func() string
}

// NewManager creates the layouts directory if needed.
func NewManager(dir string, matcher *Matcher, log *logging.Logger) (*Manager, error) {
	if log == nil {
		log = logging.Nop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create layouts directory: %w", err)
	}
	return &Manager{
		dir:       dir,
		matcher:   matcher,
		log:       log.With("component", "layout_manager"),
		now:       time.Now,
		newRuleID: func() string { return "rule_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}, nil
}

// Dir returns the layouts directory.
func (m *Manager) Dir() string { return m.dir }

// Matcher returns the screen matcher.
func (m *Manager) Matcher() *Matcher { return m.matcher }

func fileNameFor(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", newError(ErrInvalid, "layout name is required")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", newError(ErrInvalid, "invalid layout name %q", name)
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	return name, nil
}

func (m *Manager) pathFor(name string) (string, string, error) {
	file, err := fileNameFor(name)
	if err != nil {
		return "", "", err
	}
	return file, filepath.Join(m.dir, file), nil
}

// List summarizes every layout file. Unreadable files are skipped.
func (m *Manager) List() ([]Info, error) {
	paths, err := filepath.Glob(filepath.Join(m.dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]Info, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			m.log.Error("error reading layout file", err, "path", p)
			continue
		}
		var head struct {
			Name               string `json:"name"`
			Description        string `json:"description"`
			ScreenRequirements struct {
				TotalScreens int `json:"total_screens"`
			} `json:"screen_requirements"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			m.log.Error("error reading layout file", err, "path", p)
			continue
		}
		base := filepath.Base(p)
		if head.Name == "" {
			head.Name = strings.TrimSuffix(base, ".json")
		}
		out = append(out, Info{
			Name:         head.Name,
			FileName:     base,
			FilePath:     p,
			Description:  head.Description,
			TotalScreens: head.ScreenRequirements.TotalScreens,
		})
	}
	m.log.Debug("listed layouts", "count", len(out))
	return out, nil
}

// Load reads and validates a layout by name, with or without .json.
func (m *Manager) Load(name string) (*Layout, error) {
	_, path, err := m.pathFor(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, newError(ErrNotFound, "Layout file not found: %s", path)
	}
	if err != nil {
		return nil, newError(ErrInvalid, "Error loading layout: %v", err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, err
	}
	m.log.Info("loaded layout", "layout", l.Name, "path", path)
	return l, nil
}

func (m *Manager) save(path string, l *Layout) error {
	data, err := l.encode()
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write layout %q: %w", l.Name, err)
	}
	return nil
}

// ensureRuleIDs gives every rule without an id a fresh one and reports
// whether any was assigned.
func (m *Manager) ensureRuleIDs(l *Layout) bool {
	assigned := false
	for i := range l.Rules {
		if l.Rules[i].RuleID == "" {
			l.Rules[i].RuleID = m.newRuleID()
			assigned = true
		}
	}
	return assigned
}

// loadWithIDs loads a layout and persists ids for rules stored without one.
// The caller holds fileMu.
func (m *Manager) loadWithIDs(name string) (*Layout, error) {
	l, err := m.Load(name)
	if err != nil {
		return nil, err
	}
	if m.ensureRuleIDs(l) {
		_, path, _ := m.pathFor(name)
		if err := m.save(path, l); err != nil {
			m.log.Warn("could not persist assigned rule ids", "layout", l.Name, "error", err.Error())
		} else {
			m.log.Info("assigned missing rule ids", "layout", l.Name)
		}
	}
	return l, nil
}

// Preview loads a layout and checks it against the live screens.
func (m *Manager) Preview(name string) (Preview, error) {
	l, err := m.Load(name)
	if err != nil {
		return Preview{}, err
	}
	file, _ := fileNameFor(name)
	current := m.matcher.ScreenConfiguration()
	ok, reason := MatchesRequirements(current, l.ScreenRequirements)
	if current == nil {
		current = []ScreenConfig{}
	}
	return Preview{
		Name:                l.Name,
		Description:         l.Description,
		FileName:            file,
		CanApply:            ok,
		Reason:              reason,
		ScreenRequirements:  l.ScreenRequirements,
		CurrentScreenConfig: current,
		RulesCount:          len(l.Rules),
	}, nil
}

// Activate makes name the active layout. Activation is all or nothing and is
// refused while another layout is active.
func (m *Manager) Activate(name string) (Activation, error) {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return Activation{}, newError(ErrAlreadyActive,
			"Layout '%s' is already active. Deactivate it first before activating another.", m.active.name)
	}

	l, err := m.loadWithIDs(name)
	if err != nil {
		return Activation{}, prefixed("Cannot load layout: ", err)
	}

	current := m.matcher.ScreenConfiguration()
	if ok, reason := MatchesRequirements(current, l.ScreenRequirements); !ok {
		return Activation{}, newError(ErrRequirements,
			"Screen configuration doesn't match layout requirements: %s", reason)
	}

	file, _ := fileNameFor(name)
	displayMap := BuildDisplayMap(current)
	m.active = &activeLayout{
		name:        l.Name,
		fileName:    file,
		data:        *l,
		displayMap:  displayMap,
		activatedAt: m.now(),
	}
	m.log.Info("activated layout", "layout", l.Name, "rules", len(l.Rules), "display_map", displayMap)
	return Activation{
		Layout:     l.Name,
		RulesCount: len(l.Rules),
		Message:    fmt.Sprintf("Layout '%s' activated successfully", l.Name),
	}, nil
}

// Deactivate clears the active layout and returns its name.
func (m *Manager) Deactivate() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deactivateLocked()
}

func (m *Manager) deactivateLocked() (string, error) {
	if m.active == nil {
		return "", newError(ErrNotActive, "No active layout to deactivate")
	}
	name := m.active.name
	m.active = nil
	m.log.Info("deactivated layout", "layout", name)
	return name, nil
}

// CheckValidity re-checks the active layout against the live screens and
// deactivates it when they no longer satisfy its requirements. It returns
// false only when a layout was revoked.
func (m *Manager) CheckValidity() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return true
	}
	current := m.matcher.ScreenConfiguration()
	ok, reason := MatchesRequirements(current, m.active.data.ScreenRequirements)
	if ok {
		m.log.Debug("active layout still valid", "layout", m.active.name)
		return true
	}
	m.log.Warn("active layout no longer valid, auto-deactivating", "layout", m.active.name, "reason", reason)
	_, _ = m.deactivateLocked()
	return false
}

// Active describes the active layout, if any.
func (m *Manager) Active() (ActiveInfo, bool) {
	m.mu.Lock()
	a := m.active
	var info ActiveInfo
	if a != nil {
		dm := make(map[int]string, len(a.displayMap))
		for k, v := range a.displayMap {
			dm[k] = v
		}
		info = ActiveInfo{
			Name:        a.name,
			FileName:    a.fileName,
			ActivatedAt: a.activatedAt,
			RulesCount:  len(a.data.Rules),
			DisplayMap:  dm,
			Data:        cloneLayout(a.data),
		}
	}
	m.mu.Unlock()
	if a == nil {
		return ActiveInfo{}, false
	}
	info.ScreenSummary = ScreenSummary(m.matcher.ScreenConfiguration())
	return info, true
}

// ActiveFileName returns the file backing the active layout, or "".
func (m *Manager) ActiveFileName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ""
	}
	return m.active.fileName
}

// ActiveRules resolves the active layout's rules through the display map
// computed at activation. Rules whose slot is missing from the map are skipped.
func (m *Manager) ActiveRules() []ResolvedRule {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	rules := make([]ResolvedRule, 0, len(m.active.data.Rules))
	for _, r := range m.active.data.Rules {
		monitorID, ok := m.active.displayMap[r.TargetDisplay]
		if !ok {
			m.log.Warn("rule targets display missing from display map, skipping",
				"rule_id", r.RuleID, "target_display", r.TargetDisplay)
			continue
		}
		rules = append(rules, ResolvedRule{
			RuleID:          r.RuleID,
			MatchType:       r.MatchType,
			MatchValue:      r.MatchValue,
			TargetMonitorID: monitorID,
			Fullscreen:      r.Fullscreen,
			Maximize:        r.Maximize,
		})
	}
	return rules
}

// CreateFromCurrent writes a new layout whose requirements are the live
// screen configuration. The layout starts without rules.
func (m *Manager) CreateFromCurrent(name, description string) (Created, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Created{}, newError(ErrInvalid, "layout name is required")
	}
	current := m.matcher.ScreenConfiguration()
	if len(current) == 0 {
		return Created{}, newError(ErrRequirements, "No screens detected. Cannot create layout.")
	}

	screens := make([]Screen, 0, len(current))
	tags := make([]string, 0, len(current))
	for _, s := range current {
		screens = append(screens, Screen{
			DisplayNumber: s.DisplayNumber,
			Orientation:   s.Orientation,
			Description:   fmt.Sprintf("%s screen - %s", capitalize(string(s.Orientation)), s.Name),
		})
		tags = append(tags, string(s.Orientation))
	}
	if description == "" {
		plural := "s"
		if len(screens) == 1 {
			plural = ""
		}
		description = fmt.Sprintf("Layout with %d screen%s", len(screens), plural)
	}

	l := &Layout{
		Name:               name,
		Description:        description,
		Version:            "1.0",
		ScreenRequirements: Requirements{TotalScreens: len(screens), Screens: screens},
		Rules:              []Rule{},
		Metadata: map[string]any{
			"created": m.now().Format(time.RFC3339),
			"author":  Author,
			"tags":    tags,
		},
	}

	file, path, err := m.pathFor(strings.ReplaceAll(strings.ToLower(name), " ", "-"))
	if err != nil {
		return Created{}, err
	}
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	if _, err := os.Stat(path); err == nil {
		return Created{}, newError(ErrExists, "Layout '%s' already exists. Please choose a different name.", name)
	}
	if err := m.save(path, l); err != nil {
		return Created{}, err
	}
	m.log.Info("created layout", "layout", name, "path", path)
	return Created{
		FileName: file,
		FilePath: path,
		Message:  fmt.Sprintf("Layout '%s' created successfully", name),
	}, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// UpsertRule updates the rule already covering the incoming match or appends
// a new one.
func (m *Manager) UpsertRule(layoutName string, in RuleInput) (RuleChange, error) {
	if in.MatchType == "" || strings.TrimSpace(in.MatchValue) == "" {
		return RuleChange{}, newError(ErrInvalid, "match_type and match_value are required")
	}
	switch in.MatchType {
	case MatchExe, MatchWindowTitle, MatchProcessPath:
	default:
		return RuleChange{}, newError(ErrInvalid, "match_type must be one of exe, window_title, process_path")
	}
	if in.TargetDisplay < 1 {
		return RuleChange{}, newError(ErrInvalid, "target_display must be a positive integer")
	}

	file, path, err := m.pathFor(layoutName)
	if err != nil {
		return RuleChange{}, err
	}
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	l, err := m.Load(layoutName)
	if err != nil {
		return RuleChange{}, err
	}
	m.ensureRuleIDs(l)
	if !l.ScreenRequirements.Declares(in.TargetDisplay) {
		return RuleChange{}, newError(ErrInvalid, "Display %d not in layout requirements. Available displays: %s",
			in.TargetDisplay, formatList(l.ScreenRequirements.DisplayNumbers()))
	}

	var change RuleChange
	if i, ok := FindMatchingRule(targetFor(in.MatchType, in.MatchValue), l.Rules); ok {
		r := &l.Rules[i]
		r.TargetDisplay = in.TargetDisplay
		r.Fullscreen = in.Fullscreen
		r.Maximize = in.Maximize
		change = RuleChange{RuleID: r.RuleID, Message: fmt.Sprintf("Rule updated for '%s'", in.MatchValue)}
		m.log.Info("updated rule", "rule_id", r.RuleID, "layout", layoutName)
	} else {
		r := Rule{
			RuleID:        m.newRuleID(),
			MatchType:     in.MatchType,
			MatchValue:    in.MatchValue,
			TargetDisplay: in.TargetDisplay,
			Fullscreen:    in.Fullscreen,
			Maximize:      in.Maximize,
		}
		l.Rules = append(l.Rules, r)
		change = RuleChange{RuleID: r.RuleID, Created: true, Message: fmt.Sprintf("Rule added to layout '%s'", strings.TrimSuffix(layoutName, ".json"))}
		m.log.Info("added rule", "rule_id", r.RuleID, "layout", layoutName)
	}

	if err := m.save(path, l); err != nil {
		return RuleChange{}, err
	}
	change.Active = m.replaceActiveData(file, l)
	return change, nil
}

// DeleteRule removes a rule by id. It reports whether the active layout was
// updated in place.
func (m *Manager) DeleteRule(layoutName, ruleID string) (bool, error) {
	file, path, err := m.pathFor(layoutName)
	if err != nil {
		return false, err
	}
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	l, err := m.Load(layoutName)
	if err != nil {
		return false, err
	}
	m.ensureRuleIDs(l)
	kept := l.Rules[:0]
	for _, r := range l.Rules {
		if r.RuleID != ruleID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(l.Rules) {
		return false, newError(ErrRuleNotFound, "Rule '%s' not found", ruleID)
	}
	l.Rules = kept
	if err := m.save(path, l); err != nil {
		return false, err
	}
	m.log.Info("deleted rule", "rule_id", ruleID, "layout", layoutName)
	return m.replaceActiveData(file, l), nil
}

// Delete removes a layout file. The active layout cannot be deleted.
func (m *Manager) Delete(layoutName string) error {
	file, path, err := m.pathFor(layoutName)
	if err != nil {
		return err
	}
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return newError(ErrNotFound, "Layout '%s' not found", strings.TrimSuffix(layoutName, ".json"))
	}
	if m.ActiveFileName() == file {
		return newError(ErrActiveLayout, "Cannot delete active layout. Deactivate it first.")
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete layout %q: %w", layoutName, err)
	}
	m.log.Info("deleted layout", "path", path)
	return nil
}

// ReloadActive re-reads the active layout file. The display map is kept;
// invalid content is rejected and the previous data stays active.
func (m *Manager) ReloadActive() error {
	m.fileMu.Lock()
	defer m.fileMu.Unlock()
	file := m.ActiveFileName()
	if file == "" {
		return newError(ErrNotActive, "No active layout to reload")
	}
	l, err := m.loadWithIDs(file)
	if err != nil {
		return err
	}
	m.replaceActiveData(file, l)
	return nil
}

func (m *Manager) replaceActiveData(file string, l *Layout) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil || m.active.fileName != file {
		return false
	}
	m.active.data = cloneLayout(*l)
	m.log.Info("reloaded active layout data", "layout", m.active.name, "rules", len(l.Rules))
	return true
}

// ScreenConfiguration exposes the live slot mapping.
func (m *Manager) ScreenConfiguration() []ScreenConfig {
	return m.matcher.ScreenConfiguration()
}

func cloneLayout(l Layout) Layout {
	l.Rules = append(make([]Rule, 0, len(l.Rules)), l.Rules...)
	l.ScreenRequirements.Screens = append(make([]Screen, 0, len(l.ScreenRequirements.Screens)), l.ScreenRequirements.Screens...)
	return l
}

func formatList(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprint(n)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
