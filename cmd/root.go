package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "billing",
	Short: "Billing batch microservice",
	Long:  "A billing microservice for debtor batch ingestion, billing dispatch, and chargeback reconciliation jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
