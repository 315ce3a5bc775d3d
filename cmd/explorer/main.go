// Package main provides the explorer command line. It lists and binds
// queries offline and talks to the graph database for lookups, renders and
// the HTTP server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "explorer"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var rawInterpolation bool

	cmd := &cobra.Command{
		Use:   appName,
		Short: "DevRank graph explorer",
		Long: `Explore the DevRank developer graph.

Shortcuts and form bindings work offline. The remaining commands connect
to the graph database configured by NEO4J_URI, NEO4J_USER and
NEO4J_PASSWORD.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVar(&rawInterpolation, "raw", false, "Interpolate form values without escaping")

	cmd.AddCommand(
		shortcutsCmd(),
		bindCmd(&rawInterpolation),
		suggestCmd(),
		namesCmd(),
		renderCmd(),
		serveCmd(),
	)
	return cmd
}
