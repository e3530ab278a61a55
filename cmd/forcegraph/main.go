package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "forcegraph",
	Short: "forcegraph lays out 3D force-directed graphs",
	Long: brand.Sprint("forcegraph") + " runs a force-directed layout and mirrors it into a scene\n" +
		subtle.Sprint("Serve a live layout over HTTP, or lay out a payload headless"),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("forcegraph {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default: discovered)")

	rootCmd.AddCommand(
		serveCmd(),
		layoutCmd(),
		configCmd(),
	)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", bad.Sprint("error:"), err)
		os.Exit(1)
	}
}
