package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/1broseidon/screenward/internal/layout"
)

// RuleDraft holds the form fields before they are converted to a rule.
type RuleDraft struct {
	Layout     string
	MatchType  string
	MatchValue string
	Display    string
	Chrome     string
}

const (
	chromeNone       = "none"
	chromeMaximize   = "maximize"
	chromeFullscreen = "fullscreen"
)

func validateMatchValue(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("match value is required")
	}
	return nil
}

func validateDisplay(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("display must be a positive number")
	}
	return nil
}

// RuleInput converts the draft into a rule edit.
func (d RuleDraft) RuleInput() (layout.RuleInput, error) {
	if strings.TrimSpace(d.Layout) == "" {
		return layout.RuleInput{}, errors.New("layout is required")
	}
	if err := validateMatchValue(d.MatchValue); err != nil {
		return layout.RuleInput{}, err
	}
	if err := validateDisplay(d.Display); err != nil {
		return layout.RuleInput{}, err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(d.Display))

	in := layout.RuleInput{
		MatchType:     layout.MatchType(d.MatchType),
		MatchValue:    strings.TrimSpace(d.MatchValue),
		TargetDisplay: n,
	}
	switch d.Chrome {
	case chromeMaximize:
		in.Maximize = true
	case chromeFullscreen:
		in.Fullscreen = true
	case chromeNone, "":
	default:
		return layout.RuleInput{}, fmt.Errorf("unknown window state %q", d.Chrome)
	}
	return in, nil
}

// RunRuleForm asks for a rule interactively. layouts seeds the layout
// picker; draft supplies defaults for any field already given as a flag.
func RunRuleForm(layouts []string, draft RuleDraft) (RuleDraft, error) {
	if draft.MatchType == "" {
		draft.MatchType = string(layout.MatchExe)
	}
	if draft.Chrome == "" {
		draft.Chrome = chromeNone
	}

	layoutOpts := make([]huh.Option[string], 0, len(layouts))
	for _, name := range layouts {
		layoutOpts = append(layoutOpts, huh.NewOption(name, name))
	}
	if draft.Layout == "" && len(layouts) > 0 {
		draft.Layout = layouts[0]
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("layout").
				Title("Layout").
				Options(layoutOpts...).
				Value(&draft.Layout),

			huh.NewSelect[string]().
				Key("match_type").
				Title("Match on").
				Options(
					huh.NewOption("Executable name", string(layout.MatchExe)),
					huh.NewOption("Window title contains", string(layout.MatchWindowTitle)),
					huh.NewOption("Full process path", string(layout.MatchProcessPath)),
				).
				Value(&draft.MatchType),

			huh.NewInput().
				Key("match_value").
				Title("Match value").
				Description("e.g. chrome.exe, Slack, /usr/bin/code").
				Validate(validateMatchValue).
				Value(&draft.MatchValue),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("display").
				Title("Target display").
				Description("Display number as shown by 'screenward screens'").
				Validate(validateDisplay).
				Value(&draft.Display),

			huh.NewSelect[string]().
				Key("chrome").
				Title("Window state").
				Options(
					huh.NewOption("Leave as is", chromeNone),
					huh.NewOption("Maximize", chromeMaximize),
					huh.NewOption("Fullscreen", chromeFullscreen),
				).
				Value(&draft.Chrome),
		),
	).WithShowHelp(true).WithShowErrors(true)

	if err := form.Run(); err != nil {
		return draft, err
	}
	return draft, nil
}
