package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/payscore/internal/scoring"
)

var followupsLimit int

var followupsCmd = &cobra.Command{
	Use:   "followups",
	Short: "Group customers into follow-up buckets by recommended action",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		customers, err := env.Source.ListCustomers(ctx, followupsLimit)
		if err != nil {
			return err
		}

		report := env.Resolver.ResolveAll(ctx, customers, env.Source, time.Now().UTC())
		groups := scoring.GroupFollowups(scoring.Scores(report))
		return printJSON(cmd.OutOrStdout(), groups)
	},
}

func init() {
	followupsCmd.Flags().IntVar(&followupsLimit, "limit", 100, "maximum number of customers to score")
	rootCmd.AddCommand(followupsCmd)
}
