package layout

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRejectsInvalidLayouts(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"bad json", `{`, "Invalid JSON in layout file"},
		{"missing name", `{"screen_requirements": {}, "rules": []}`, "Missing required field: name"},
		{"missing rules", `{"name": "x", "screen_requirements": {}}`, "Missing required field: rules"},
		{"requirements not object", `{"name": "x", "screen_requirements": [], "rules": []}`, "screen_requirements must be a dictionary"},
		{"missing total", `{"name": "x", "screen_requirements": {"screens": []}, "rules": []}`, "screen_requirements missing: total_screens"},
		{"screens not list", `{"name": "x", "screen_requirements": {"total_screens": 1, "screens": {}}, "rules": []}`, "screen_requirements.screens must be a list"},
		{
			"screen missing orientation",
			`{"name": "x", "screen_requirements": {"total_screens": 1, "screens": [{"display_number": 1}]}, "rules": []}`,
			"Screen 0 missing: orientation",
		},
		{
			"bad orientation",
			`{"name": "x", "screen_requirements": {"total_screens": 1, "screens": [{"display_number": 1, "orientation": "diagonal"}]}, "rules": []}`,
			"Screen 0 has invalid orientation: diagonal (must be 'horizontal' or 'vertical')",
		},
		{
			"rules not list",
			`{"name": "x", "screen_requirements": {"total_screens": 1, "screens": [{"display_number": 1, "orientation": "vertical"}]}, "rules": {}}`,
			"rules must be a list",
		},
		{
			"rule missing target",
			`{"name": "x", "screen_requirements": {"total_screens": 1, "screens": [{"display_number": 1, "orientation": "vertical"}]},
			  "rules": [{"match_type": "exe", "match_value": "a.exe"}]}`,
			"Rule 0 missing: target_display",
		},
		{
			"rule targets undeclared display",
			`{"name": "x", "screen_requirements": {"total_screens": 1, "screens": [{"display_number": 1, "orientation": "vertical"}]},
			  "rules": [{"match_type": "exe", "match_value": "a.exe", "target_display": 2}]}`,
			"Rule 0 targets DISPLAY2 which is not in screen_requirements",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Parse() error = %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseValidLayout(t *testing.T) {
	doc := `{
	  "name": "Coding",
	  "screen_requirements": {"total_screens": 2, "screens": [
	    {"display_number": 1, "orientation": "vertical"},
	    {"display_number": 2, "orientation": "horizontal"}
	  ]},
	  "rules": [{"rule_id": "rule_1", "match_type": "exe", "match_value": "chrome.exe", "target_display": 2, "maximize": true}]
	}`
	l, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if l.Name != "Coding" || len(l.Rules) != 1 || !l.Rules[0].Maximize || l.Rules[0].Fullscreen {
		t.Errorf("Parse() = %+v", l)
	}
	if !l.ScreenRequirements.Declares(2) || l.ScreenRequirements.Declares(3) {
		t.Errorf("Declares() wrong for %+v", l.ScreenRequirements)
	}
}
