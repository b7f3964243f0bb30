package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"netstack/cmd/run"
)

var rootCmd = &cobra.Command{
	Use:   "netstack",
	Short: "netstack is an embedded-style TCP/IP protocol suite demo: timer core, MLDPv1, and a BSD socket facade.",
}

func init() {
	rootCmd.AddCommand(run.Cmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
