// Package main provides the disparod binary: an event-dispatch server
// that runs background functions triggered over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "disparod",
		Short:   "Event-dispatch server for background functions",
		Version: version,
	}
	root.AddCommand(serveCmd())
	return root
}
