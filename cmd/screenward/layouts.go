package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/screenward/internal/cli"
)

func newLayoutsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "layouts",
		Aliases: []string{"layout"},
		Short:   "List, preview and activate layouts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listLayouts(cmd, g)
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a layout from the screens attached right now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			created, err := g.client().CreateLayout(args[0], description)
			if err != nil {
				return err
			}
			return g.emit(cmd, created, func(p *cli.Printer) {
				p.OK("%s", created.Message)
				p.Dim("%s", created.FilePath)
			})
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "layout description")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List layout files",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listLayouts(cmd, g)
			},
		},
		&cobra.Command{
			Use:   "preview <name>",
			Short: "Check whether a layout fits the attached screens",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				pv, err := g.client().PreviewLayout(args[0])
				if err != nil {
					return err
				}
				return g.emit(cmd, pv, func(p *cli.Printer) { p.Preview(pv) })
			},
		},
		&cobra.Command{
			Use:   "activate <name>",
			Short: "Activate a layout",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				act, err := g.client().ActivateLayout(args[0])
				if err != nil {
					return err
				}
				return g.emit(cmd, act, func(p *cli.Printer) { p.OK("%s", act.Message) })
			},
		},
		&cobra.Command{
			Use:   "deactivate",
			Short: "Deactivate the active layout",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				name, err := g.client().DeactivateLayout()
				if err != nil {
					return err
				}
				return g.emit(cmd, map[string]string{"layout": name}, func(p *cli.Printer) {
					p.OK("Layout '%s' deactivated", name)
				})
			},
		},
		&cobra.Command{
			Use:   "active",
			Short: "Show the active layout and its display mapping",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				info, err := g.client().ActiveLayout()
				if err != nil {
					return err
				}
				return g.emit(cmd, info, func(p *cli.Printer) { p.ActiveLayout(info) })
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Re-check the active layout against the attached screens",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := g.client().CheckLayout()
				if err != nil {
					return err
				}
				return g.emit(cmd, data, func(p *cli.Printer) {
					switch {
					case !data.Valid:
						p.Warn("Active layout no longer matches the screens and was deactivated")
					case data.ActiveLayout == "":
						p.Dim("No active layout")
					default:
						p.OK("Layout '%s' still matches", data.ActiveLayout)
					}
				})
			},
		},
		create,
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a layout file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := g.client().DeleteLayout(args[0]); err != nil {
					return err
				}
				g.printer(cmd).OK("Deleted layout %s", args[0])
				return nil
			},
		},
	)
	return cmd
}

func listLayouts(cmd *cobra.Command, g *globals) error {
	c := g.client()
	infos, err := c.ListLayouts()
	if err != nil {
		return err
	}
	active := ""
	if info, err := c.ActiveLayout(); err == nil && info != nil {
		active = info.Name
	}
	return g.emit(cmd, infos, func(p *cli.Printer) { p.Layouts(infos, active) })
}

func newScreensCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "screens",
		Short: "Show the attached screens as layout display numbers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := g.client().Screens()
			if err != nil {
				return err
			}
			return g.emit(cmd, data, func(p *cli.Printer) { p.Screens(data.Screens, data.Summary) })
		},
	}
}
