// Command rentledger runs the rental ledger HTTP service and its
// maintenance tasks.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	var envFiles []string

	rootCmd := &cobra.Command{
		Use:           "rentledger",
		Short:         "Utility and rent ledger for rental rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")

	rootCmd.AddCommand(
		serveCmd(&envFiles),
		seedCmd(&envFiles),
		verifyCmd(&envFiles),
		exportCmd(&envFiles),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
