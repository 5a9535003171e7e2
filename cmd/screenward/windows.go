package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/1broseidon/screenward/internal/cli"
	"github.com/1broseidon/screenward/internal/platform"
	"github.com/1broseidon/screenward/internal/service"
	"github.com/1broseidon/screenward/internal/window"
)

func parseHandle(s string) (platform.WindowID, error) {
	// Accept decimal and 0x-prefixed handles.
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid window handle %q", s)
	}
	return platform.WindowID(v), nil
}

func newWindowsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "windows",
		Aliases: []string{"window"},
		Short:   "List and control application windows",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listWindows(cmd, g)
		},
	}

	var rule service.WindowRule
	apply := &cobra.Command{
		Use:   "apply <hwnd> <monitor-id>",
		Short: "Move one window to a monitor and set its state",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseHandle(args[0])
			if err != nil {
				return err
			}
			rule.Handle = id
			rule.MonitorID = args[1]
			result, err := g.client().ApplyWindowRule(rule)
			if err != nil {
				return err
			}
			return g.emit(cmd, result, func(p *cli.Printer) {
				if !result.Changed {
					p.Dim("Window already in place")
					return
				}
				p.OK("Done: %v", result.Operations)
				if result.FullscreenVerification != window.VerifyNotAttempted {
					p.Dim("fullscreen %s", result.FullscreenVerification)
				}
			})
		},
	}
	apply.Flags().BoolVar(&rule.Maximize, "maximize", false, "maximize the window")
	apply.Flags().BoolVar(&rule.Fullscreen, "fullscreen", false, "make the window fullscreen")
	apply.MarkFlagsMutuallyExclusive("maximize", "fullscreen")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List application windows",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listWindows(cmd, g)
			},
		},
		&cobra.Command{
			Use:   "focus <hwnd>",
			Short: "Bring a window to the foreground",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseHandle(args[0])
				if err != nil {
					return err
				}
				return g.client().FocusWindow(id)
			},
		},
		apply,
	)
	return cmd
}

func listWindows(cmd *cobra.Command, g *globals) error {
	cache, err := g.client().ListWindows()
	if err != nil {
		return err
	}
	return g.emit(cmd, cache, func(p *cli.Printer) { p.Windows(cache) })
}
