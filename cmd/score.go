package main

import (
	"time"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score <customer-id>",
	Short: "Score a single customer's payment risk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		customerID := args[0]
		customer, err := env.Source.GetCustomer(ctx, customerID)
		if err != nil {
			return err
		}

		invoices, err := env.Source.GetInvoices(ctx, customerID)
		if err != nil {
			return err
		}
		payments, err := env.Source.GetPayments(ctx, customerID)
		if err != nil {
			return err
		}

		score := env.Resolver.Resolve(ctx, *customer, invoices, payments, time.Now().UTC())
		return printJSON(cmd.OutOrStdout(), score)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
