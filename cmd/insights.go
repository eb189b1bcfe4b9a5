package main

import (
	"github.com/spf13/cobra"
)

var insightsCmd = &cobra.Command{
	Use:   "insights <customer-id>",
	Short: "Show detailed payment-behavior insights for a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		insights, err := customerInsights(ctx, env, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), insights)
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
}
