package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "optionhouse",
	Short: "Decentralized option-auction engine",
	Long: `optionhouse runs a decentralized market-matching engine: seller
agents mint deals, wrap them in time-boxed options, and sell those
options through timed ascending auctions. Buyer agents bid concurrently,
adapt to outbid notifications, and the winning option is transferred
atomically to exactly one buyer.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
