package main

import (
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var scoresLimit int

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Score all customers and print a batch report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		customers, err := env.Source.ListCustomers(ctx, scoresLimit)
		if err != nil {
			return err
		}

		report := env.Resolver.ResolveAll(ctx, customers, env.Source, time.Now().UTC())
		return printJSON(cmd.OutOrStdout(), report)
	},
}

func init() {
	scoresCmd.Flags().IntVar(&scoresLimit, "limit", 100, "maximum number of customers to score")
	rootCmd.AddCommand(scoresCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "encode output")
	}
	return nil
}
