package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/payscore/internal/scoring"
)

var highRiskLimit int

var highRiskCmd = &cobra.Command{
	Use:   "high-risk",
	Short: "List customers classified as high risk",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		customers, err := env.Source.ListCustomers(ctx, highRiskLimit)
		if err != nil {
			return err
		}

		report := env.Resolver.ResolveAll(ctx, customers, env.Source, time.Now().UTC())
		highRisk := scoring.FilterHighRisk(scoring.Scores(report))
		return printJSON(cmd.OutOrStdout(), highRisk)
	},
}

func init() {
	highRiskCmd.Flags().IntVar(&highRiskLimit, "limit", 100, "maximum number of customers to score")
	rootCmd.AddCommand(highRiskCmd)
}
