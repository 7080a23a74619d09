package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	rootCmd = &cobra.Command{
		Use:   "rouse",
		Short: "Wake a tagged EC2 instance",
		Long: `rouse - wake a tagged EC2 instance on demand

rouse finds the instance carrying every requested tag, starts it if it
is stopped, waits until it is running and prints its public address.
The same logic runs as the rouse-lambda function.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`rouse {{.Version}}
`)
}
