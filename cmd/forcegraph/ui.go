package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"forcegraph/internal/config"
)

// Output colors
var (
	brand  = color.New(color.FgHiMagenta, color.Bold)
	subtle = color.New(color.FgHiBlack)
	good   = color.New(color.FgGreen)
	warn   = color.New(color.FgYellow)
	bad    = color.New(color.FgRed)
)

// loadConfig loads the --config file, or discovers one.
func loadConfig() (*config.Config, string, error) {
	if configPath != "" {
		return config.LoadFromPath(configPath)
	}
	return config.Load()
}

// field prints an aligned label/value line.
func field(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %s %v\n", subtle.Sprintf("%-12s", label), value)
}
