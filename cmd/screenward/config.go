package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/1broseidon/screenward/internal/config"
)

func formatSource(src config.Source) string {
	if src.Kind != config.SourceFile {
		return string(src.Kind)
	}
	return fmt.Sprintf("%s:%d:%d", src.File, src.Line, src.Column)
}

func newConfigCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the daemon configuration file",
	}

	var defaults bool
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if !defaults {
				res, err := loadConfig(g)
				if err != nil {
					return err
				}
				cfg = res.Config
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	printCmd.Flags().BoolVar(&defaults, "defaults", false, "print built-in defaults (no files)")

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.configPath
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			g.printer(cmd).OK("Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate",
			Short: "Validate the configuration file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := loadConfig(g); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "config: ok")
				return nil
			},
		},
		printCmd,
		&cobra.Command{
			Use:   "explain <yaml.path>",
			Short: "Show a config value and where it was set",
			Long:  "Show a config value and where it was set. Run without a path to list every key.",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				res, err := loadConfig(g)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(args) == 0 {
					for _, p := range config.Paths(res.Config) {
						fmt.Fprintln(out, p)
					}
					return nil
				}
				value, src, err := config.Explain(res, args[0])
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(value)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "path: %s\n", args[0])
				fmt.Fprintf(out, "source: %s\n", formatSource(src))
				fmt.Fprintf(out, "value:\n%s", string(data))
				return nil
			},
		},
		initCmd,
	)
	return cmd
}
