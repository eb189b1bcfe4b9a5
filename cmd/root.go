package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/payscore/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "payscore",
	Short: "Customer payment-risk scoring pipeline",
	Long:  "Aggregates invoice and payment history from the accounting system, scores payment risk through Claude with a deterministic fallback, and groups customers into follow-up buckets.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
