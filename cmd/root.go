/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/farzad1132/hellobench/responder"
	"github.com/spf13/cobra"
)

// rootCmd starts the fixed-response server. It takes no flags and no
// arguments.
var rootCmd = &cobra.Command{
	Use:          "hellobench",
	Short:        "fixed \"Hello,world!\" HTTP server used as a load-testing target",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Serve(responder.New(responder.DefaultConfig()), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the root command and exits with status 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// Serve binds r, announces it on out and serves until the listener closes.
// A bind error is returned before anything is written.
func Serve(r *responder.Responder, out io.Writer) error {
	if err := r.Listen(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Server running at %s\n", r.URL())
	return r.Serve()
}
