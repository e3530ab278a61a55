package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"forcegraph/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	cmd.AddCommand(configShowCmd(), configInitCmd())
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if path == "" {
				fmt.Fprintln(w, subtle.Sprint("No config file found, using defaults"))
			} else {
				fmt.Fprintf(w, "%s %s\n", brand.Sprint("config"), path)
			}
			fmt.Fprintln(w)
			fmt.Fprint(w, cfg.Summary())
			field(w, "fetch", fmt.Sprintf("%.1f req/s, max %s", cfg.Fetch.RequestsPerSecond,
				humanize.IBytes(uint64(cfg.Fetch.MaxBytes))))
			if cfg.Watch.Path != "" {
				field(w, "watch", fmt.Sprintf("%s (debounce %s)", cfg.Watch.Path, cfg.Watch.Debounce.Duration()))
			}
			return nil
		},
	}
}

func configInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigPath()
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", good.Sprint("\u2713"), path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
