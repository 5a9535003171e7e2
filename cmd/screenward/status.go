package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/screenward/internal/cli"
)

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := g.client().GetStatus()
			if err != nil {
				return err
			}
			return g.emit(cmd, st, func(p *cli.Printer) { p.Status(st) })
		},
	}
}

func newApplyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply the active layout's rules to all windows now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := g.client().ApplyRules()
			if err != nil {
				return err
			}
			return g.emit(cmd, summary, func(p *cli.Printer) { p.ApplySummary(summary) })
		},
	}
}
