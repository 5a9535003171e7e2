package layout

import "strings"

// Target is the part of a window a rule can match against.
type Target struct {
	ExeName     string
	Title       string
	ProcessPath string
}

// NormalizeExe lowercases an executable name and ensures a .exe suffix.
func NormalizeExe(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if s == "" || strings.HasSuffix(s, ".exe") {
		return s
	}
	return s + ".exe"
}

func matches(kind MatchType, value string, t Target) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return false
	}
	switch kind {
	case MatchExe:
		return NormalizeExe(t.ExeName) == NormalizeExe(value)
	case MatchWindowTitle:
		return strings.Contains(strings.ToLower(t.Title), value)
	case MatchProcessPath:
		return strings.ToLower(t.ProcessPath) == value
	}
	return false
}

// Matches reports whether the rule covers the window.
func (r Rule) Matches(t Target) bool {
	return matches(r.MatchType, r.MatchValue, t)
}

// Matches reports whether the resolved rule covers the window.
func (r ResolvedRule) Matches(t Target) bool {
	return matches(r.MatchType, r.MatchValue, t)
}

// FindMatchingRule returns the index of the first rule covering t.
func FindMatchingRule(t Target, rules []Rule) (int, bool) {
	for i, r := range rules {
		if r.Matches(t) {
			return i, true
		}
	}
	return -1, false
}

// targetFor builds the window a rule with the given match would select, for
// finding rules that already cover it.
func targetFor(kind MatchType, value string) Target {
	switch kind {
	case MatchExe:
		return Target{ExeName: value}
	case MatchWindowTitle:
		return Target{Title: value}
	case MatchProcessPath:
		return Target{ProcessPath: value}
	}
	return Target{}
}
