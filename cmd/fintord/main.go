package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fintor-ai/fintor/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fintord",
		Short: "Fintor retrieval daemon and CLI",
		Long:  "Fintor daemon for running the retrieval API server and managing the knowledge store",
	}

	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.SearchCmd())
	rootCmd.AddCommand(cli.ResetCmd())

	cli.CheckHelpJSON(rootCmd)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
