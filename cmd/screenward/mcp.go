package main

import (
	"github.com/spf13/cobra"

	"github.com/1broseidon/screenward/internal/logging"
	"github.com/1broseidon/screenward/internal/mcp"
)

func newMCPCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Model Context Protocol server",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		Long: `Start the MCP server on stdio. Tools forward to the running daemon,
so start 'screenward daemon' first. Point your MCP client at the command
'screenward mcp serve'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// stdout carries the protocol; log to the configured file only.
			log := logging.Nop()
			if res, err := loadConfig(g); err == nil {
				if l, err := newLogger(res.Config, false); err == nil {
					log = l
					defer l.Close()
				}
			}
			return mcp.NewServer(g.client(), log).Run(cmd.Context())
		},
	})
	return cmd
}
