package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/1broseidon/screenward/internal/cli"
	"github.com/1broseidon/screenward/internal/layout"
)

func newRulesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rules",
		Aliases: []string{"rule"},
		Short:   "Show and edit layout rules",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRules(cmd, g)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the active layout's rules with their target monitors",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listRules(cmd, g)
			},
		},
		newRuleAddCmd(g),
		&cobra.Command{
			Use:   "delete <layout> <rule-id>",
			Short: "Delete a rule from a layout",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				active, err := g.client().DeleteRule(args[0], args[1])
				if err != nil {
					return err
				}
				p := g.printer(cmd)
				p.OK("Deleted %s from %s", args[1], args[0])
				if active {
					p.Dim("The active layout was updated")
				}
				return nil
			},
		},
	)
	return cmd
}

func listRules(cmd *cobra.Command, g *globals) error {
	rules, err := g.client().ActiveRules()
	if err != nil {
		return err
	}
	return g.emit(cmd, rules, func(p *cli.Printer) { p.Rules(rules) })
}

func newRuleAddCmd(g *globals) *cobra.Command {
	var (
		draft       cli.RuleDraft
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a rule, or update the rule matching the same window",
		Example: `  screenward rules add --layout coding --exe chrome.exe --display 2 --maximize
  screenward rules add --layout coding --title YouTube --display 1 --fullscreen
  screenward rules add -i`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if exe, _ := flags.GetString("exe"); exe != "" {
				draft.MatchType, draft.MatchValue = string(layout.MatchExe), exe
			}
			if title, _ := flags.GetString("title"); title != "" {
				draft.MatchType, draft.MatchValue = string(layout.MatchWindowTitle), title
			}
			if path, _ := flags.GetString("path"); path != "" {
				draft.MatchType, draft.MatchValue = string(layout.MatchProcessPath), path
			}
			if n, _ := flags.GetInt("display"); n != 0 {
				draft.Display = strconv.Itoa(n)
			}
			if maximize, _ := flags.GetBool("maximize"); maximize {
				draft.Chrome = "maximize"
			}
			if fs, _ := flags.GetBool("fullscreen"); fs {
				draft.Chrome = "fullscreen"
			}

			c := g.client()
			if interactive {
				if !term.IsTerminal(int(os.Stdin.Fd())) {
					return fmt.Errorf("interactive mode needs a terminal")
				}
				infos, err := c.ListLayouts()
				if err != nil {
					return err
				}
				names := make([]string, 0, len(infos))
				for _, in := range infos {
					names = append(names, in.FileName)
				}
				if draft, err = cli.RunRuleForm(names, draft); err != nil {
					return err
				}
			}

			in, err := draft.RuleInput()
			if err != nil {
				return err
			}
			change, err := c.UpsertRule(draft.Layout, in)
			if err != nil {
				return err
			}
			return g.emit(cmd, change, func(p *cli.Printer) {
				p.OK("%s", change.Message)
				if change.Active {
					p.Dim("Applied to the active layout")
				}
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&draft.Layout, "layout", "l", "", "layout to edit")
	f.String("exe", "", "match windows by executable name")
	f.String("title", "", "match windows whose title contains this text")
	f.String("path", "", "match windows by full process path")
	f.Int("display", 0, "target display number (see 'screenward screens')")
	f.Bool("maximize", false, "maximize matching windows")
	f.Bool("fullscreen", false, "make matching windows fullscreen")
	f.BoolVarP(&interactive, "interactive", "i", false, "fill in the rule with a form")
	cmd.MarkFlagsMutuallyExclusive("exe", "title", "path")
	cmd.MarkFlagsMutuallyExclusive("maximize", "fullscreen")
	return cmd
}
