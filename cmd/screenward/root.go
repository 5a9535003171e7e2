package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/screenward/internal/cli"
	"github.com/1broseidon/screenward/internal/ipc"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	socket     string
	configPath string
	json       bool
}

func (g *globals) client() *ipc.Client {
	if g.socket != "" {
		return ipc.NewClientAt(g.socket)
	}
	return ipc.NewClient()
}

func (g *globals) printer(cmd *cobra.Command) *cli.Printer {
	return cli.NewPrinter(cmd.OutOrStdout())
}

// emit writes v as JSON when --json is set, otherwise calls human.
func (g *globals) emit(cmd *cobra.Command, v any, human func(p *cli.Printer)) error {
	p := g.printer(cmd)
	if g.json {
		return p.JSON(v)
	}
	human(p)
	return nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "screenward",
		Short: "Keep application windows on the right monitor",
		Long: `screenward remembers your physical monitors, matches the attached screens
against layout files and moves, maximizes or fullscreens windows according
to the active layout's rules.

Run 'screenward daemon' in your session, then use the other commands to
inspect and control it.`,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.socket, "socket", "", "IPC socket path (default: $SCREENWARD_SOCKET or <runtime dir>/screenward.sock)")
	pf.StringVar(&g.configPath, "config", "", "daemon config file (default: <config dir>/screenward/config.yaml)")
	pf.BoolVar(&g.json, "json", false, "print raw JSON instead of formatted output")

	root.AddCommand(
		newDaemonCmd(g),
		newStatusCmd(g),
		newApplyCmd(g),
		newMonitorsCmd(g),
		newSettingsCmd(g),
		newLayoutsCmd(g),
		newScreensCmd(g),
		newRulesCmd(g),
		newWindowsCmd(g),
		newConfigCmd(g),
		newMCPCmd(g),
		newVersionCmd(),
	)
	return root
}
