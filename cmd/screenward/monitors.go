package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/1broseidon/screenward/internal/cli"
	"github.com/1broseidon/screenward/internal/monitor"
)

func newMonitorsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitors",
		Short: "List and manage known monitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listMonitors(cmd, g)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every known monitor and whether it is connected",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listMonitors(cmd, g)
			},
		},
		&cobra.Command{
			Use:   "detect",
			Short: "Re-detect attached monitors now",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				data, err := g.client().DetectMonitors()
				if err != nil {
					return err
				}
				return g.emit(cmd, data, func(p *cli.Printer) {
					p.Line("Detected %d monitor(s)", len(data.MonitorIDs))
					for _, m := range data.Monitors {
						p.Line("  %s  %s  scale %.2f", m.ID, m.Name, m.DPIScale)
					}
				})
			},
		},
		&cobra.Command{
			Use:   "delete <monitor-id>",
			Short: "Forget a known monitor",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				deleted, err := g.client().DeleteMonitor(args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("monitor %s not found", args[0])
				}
				g.printer(cmd).OK("Deleted %s", args[0])
				return nil
			},
		},
	)
	return cmd
}

func listMonitors(cmd *cobra.Command, g *globals) error {
	mons, err := g.client().ListMonitors()
	if err != nil {
		return err
	}
	return g.emit(cmd, mons, func(p *cli.Printer) { p.Monitors(mons) })
}

func newSettingsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change global settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.client().GetSettings()
			if err != nil {
				return err
			}
			return g.emit(cmd, s, func(p *cli.Printer) { p.Settings(s) })
		},
	}

	var (
		defaultLayout string
		clearDefault  bool
		centerMouse   string
	)
	set := &cobra.Command{
		Use:   "set",
		Short: "Update settings; unset flags are left unchanged",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch monitor.SettingsPatch
			if cmd.Flags().Changed("default-layout") {
				patch.DefaultLayout = &defaultLayout
			}
			if clearDefault {
				empty := ""
				patch.DefaultLayout = &empty
			}
			if cmd.Flags().Changed("center-mouse") {
				v, err := strconv.ParseBool(centerMouse)
				if err != nil {
					return fmt.Errorf("invalid --center-mouse value %q", centerMouse)
				}
				patch.CenterMouseOnSwitch = &v
			}
			if patch.DefaultLayout == nil && patch.CenterMouseOnSwitch == nil {
				return fmt.Errorf("nothing to change")
			}
			s, err := g.client().UpdateSettings(patch)
			if err != nil {
				return err
			}
			return g.emit(cmd, s, func(p *cli.Printer) { p.Settings(s) })
		},
	}
	set.Flags().StringVar(&defaultLayout, "default-layout", "", "layout activated when the daemon starts")
	set.Flags().BoolVar(&clearDefault, "clear-default-layout", false, "remove the default layout")
	set.Flags().StringVar(&centerMouse, "center-mouse", "", "center the mouse on a window after switching (true/false)")
	set.MarkFlagsMutuallyExclusive("default-layout", "clear-default-layout")

	cmd.AddCommand(set)
	return cmd
}
