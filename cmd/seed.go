package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/payscore/internal/source"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the local SQLite schema and load demo customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		src, err := source.NewSQLite(cfg.Source.SQLitePath)
		if err != nil {
			return err
		}
		defer src.Close() //nolint:errcheck

		if err := src.Migrate(ctx); err != nil {
			return err
		}
		if err := src.Seed(ctx, time.Now().UTC()); err != nil {
			return err
		}

		zap.L().Info("seeded demo data", zap.String("path", cfg.Source.SQLitePath))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
