package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"housingetl/internal/storage"
)

func newQueryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run aggregate queries against the loaded table",
	}
	cmd.AddCommand(newBedroomsCmd(a), newIncomeCmd(a))
	return cmd
}

func newBedroomsCmd(a *app) *cobra.Command {
	var above int64
	cmd := &cobra.Command{
		Use:   "bedrooms",
		Short: "Sum total_bedrooms over rows with more than --above bedrooms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadValid(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			q, closeFn, err := storage.OpenQuerier(cmd.Context(), storageConfig(p))
			if err != nil {
				return err
			}
			defer closeFn()

			sum, err := q.SumBedroomsAbove(cmd.Context(), above)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), humanize.Comma(sum))
			return nil
		},
	}
	cmd.Flags().Int64Var(&above, "above", 0, "exclusive lower bound on total_bedrooms")
	return cmd
}

func newIncomeCmd(a *app) *cobra.Command {
	var zip string
	cmd := &cobra.Command{
		Use:   "income",
		Short: "Average median_income for one zip code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.loadValid(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			q, closeFn, err := storage.OpenQuerier(cmd.Context(), storageConfig(p))
			if err != nil {
				return err
			}
			defer closeFn()

			avg, ok, err := q.AvgIncomeForZip(cmd.Context(), zip)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "no rows for zip %s\n", zip)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), humanize.Comma(int64(math.Round(avg))))
			return nil
		},
	}
	cmd.Flags().StringVar(&zip, "zip", "", "zip code to average over")
	_ = cmd.MarkFlagRequired("zip")
	return cmd
}
