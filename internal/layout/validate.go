package layout

import "fmt"

// validate checks the decoded document shape and returns the first problem.
func validate(doc any) (string, bool) {
	root, ok := doc.(map[string]any)
	if !ok {
		return "layout must be a JSON object", false
	}
	for _, field := range []string{"name", "screen_requirements", "rules"} {
		if _, ok := root[field]; !ok {
			return "Missing required field: " + field, false
		}
	}

	req, ok := root["screen_requirements"].(map[string]any)
	if !ok {
		return "screen_requirements must be a dictionary", false
	}
	for _, field := range []string{"total_screens", "screens"} {
		if _, ok := req[field]; !ok {
			return "screen_requirements missing: " + field, false
		}
	}
	screens, ok := req["screens"].([]any)
	if !ok {
		return "screen_requirements.screens must be a list", false
	}

	declared := make([]any, 0, len(screens))
	for i, s := range screens {
		screen, _ := s.(map[string]any)
		num, ok := screen["display_number"]
		if !ok {
			return fmt.Sprintf("Screen %d missing: display_number", i), false
		}
		orientation, ok := screen["orientation"]
		if !ok {
			return fmt.Sprintf("Screen %d missing: orientation", i), false
		}
		if orientation != string(Horizontal) && orientation != string(Vertical) {
			return fmt.Sprintf("Screen %d has invalid orientation: %v (must be 'horizontal' or 'vertical')", i, orientation), false
		}
		declared = append(declared, num)
	}

	rules, ok := root["rules"].([]any)
	if !ok {
		return "rules must be a list", false
	}
	for i, r := range rules {
		rule, _ := r.(map[string]any)
		for _, field := range []string{"match_type", "match_value", "target_display"} {
			if _, ok := rule[field]; !ok {
				return fmt.Sprintf("Rule %d missing: %s", i, field), false
			}
		}
		target := rule["target_display"]
		found := false
		for _, d := range declared {
			if sameNumber(d, target) {
				found = true
				break
			}
		}
		if !found {
			return fmt.Sprintf("Rule %d targets DISPLAY%v which is not in screen_requirements", i, target), false
		}
	}
	return "", true
}

func sameNumber(a, b any) bool {
	x, ok := a.(float64)
	if !ok {
		return false
	}
	y, ok := b.(float64)
	return ok && x == y
}
