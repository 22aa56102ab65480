package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evolab/bqh/internal/duckdb"
)

func newQueryCmd() *cobra.Command {
	var store string

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query annotated calls stored by 'bqh trajectories --store'",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if store == "" {
				store = viper.GetString("store.path")
			}
			if store == "" {
				return fmt.Errorf("no store configured (use --store or 'bqh config set store.path <file>')")
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&store, "store", "", "DuckDB file (default store.path)")

	open := func() (*duckdb.Store, error) { return duckdb.Open(store) }
	cmd.AddCommand(newQueryProductsCmd(open), newQueryCallsCmd(open), newQueryClearCmd(open))
	return cmd
}

func newQueryProductsCmd(open func() (*duckdb.Store, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "products <strain>",
		Short: "Count samples and calls per mutated product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			counts, err := s.ProductCounts(args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRODUCT\tSAMPLES\tCALLS")
			for _, c := range counts {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", c.Product, c.Samples, c.Calls)
			}
			return tw.Flush()
		},
	}
}

func newQueryCallsCmd(open func() (*duckdb.Store, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "calls <strain> <product>",
		Short: "List the stored calls inside a product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.CallsByProduct(args[0], args[1])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SAMPLE\tTIMEPOINT\tCHROM\tPOS\tQUAL\tDEPTH\tFREQ\tRUN")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%g\t%d\t%.3f\t%s\n",
					r.Sample, r.Timepoint, r.Chrom, r.Pos, r.Qual, r.Depth, r.FreqSum, r.RunID)
			}
			return tw.Flush()
		},
	}
}

func newQueryClearCmd(open func() (*duckdb.Store, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every stored call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer s.Close()
			return s.Clear()
		},
	}
}
