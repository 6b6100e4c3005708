package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/optionhouse/optionhouse/internal/app"
	"github.com/optionhouse/optionhouse/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the auction engine",
	Long: `Starts the optionhouse engine, which will:
1. Spawn the configured buyer and seller agent population
2. Open auctions for every deal the sellers mint
3. Resolve each auction through a highest-first offer waterfall
4. Record settled trades in the configured ledger

Use --seed to make a run reproducible.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Int64P("seed", "s", 0, "Random seed override (0 uses RANDOM_SEED or wall clock)")
}

func runEngine(cmd *cobra.Command, args []string) error {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	seed, _ := cmd.Flags().GetInt64("seed")

	application, err := app.New(cfg, logger, &app.Options{Seed: seed})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
