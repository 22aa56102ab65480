package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evolab/bqh/internal/effects"
	"github.com/evolab/bqh/internal/plot"
	"github.com/evolab/bqh/internal/samples"
)

const defaultTimepoint = "T44"

func newEffectsCmd() *cobra.Command {
	var strain, timepoint string

	cmd := &cobra.Command{
		Use:   "effects",
		Short: "Plot snippy variant effects summed per treatment",
		Long: `Count variant effects in the snippy tables of the Illumina samples at a
timepoint and plot them per treatment to <plots>/effects/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRegistry()
			if err != nil {
				return err
			}
			strains, err := selectStrains(r, strain)
			if err != nil {
				return err
			}

			s := effects.NewSummarizer(r)
			s.SetLogger(logger)
			for _, st := range strains {
				et, err := s.EffectCounts(st, timepoint)
				if err != nil {
					return err
				}
				title := fmt.Sprintf("effects in %s at %s", st, timepoint)
				path := plotsDir("effects", plot.FileName(title, ".png"))
				if err := plot.EffectBars(path, title, et.Effects, et.Treatments, et.Counts); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strain, "strain", "", "only this strain (default: all)")
	cmd.Flags().StringVar(&timepoint, "timepoint", defaultTimepoint, "sampling timepoint")
	return cmd
}

func newSNPCountsCmd() *cobra.Command {
	var strain, timepoint string

	cmd := &cobra.Command{
		Use:   "snp-counts",
		Short: "Plot the number of SNPs per sample, grouped by treatment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRegistry()
			if err != nil {
				return err
			}
			strains, err := selectStrains(r, strain)
			if err != nil {
				return err
			}

			s := effects.NewSummarizer(r)
			s.SetLogger(logger)
			for _, st := range strains {
				counts, err := s.SNPCounts(st, timepoint)
				if err != nil {
					return err
				}
				values := make([]plot.SampleValue, len(counts))
				for i, c := range counts {
					values[i] = plot.SampleValue{Sample: c.Sample, Treatment: c.Treatment, Value: float64(c.Count)}
				}
				title := fmt.Sprintf("SNPs in %s at %s", st, timepoint)
				path := plotsDir("snps", plot.FileName(title, ".png"))
				if err := plot.BoxPlots(path, title, "n SNPs", r.Treatments(st), values); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strain, "strain", "", "only this strain (default: all)")
	cmd.Flags().StringVar(&timepoint, "timepoint", defaultTimepoint, "sampling timepoint")
	return cmd
}

func newUniqueProductsCmd() *cobra.Command {
	var (
		strain     string
		platform   string
		file       string
		minSamples int
	)

	cmd := &cobra.Command{
		Use:   "unique-products <treatment-a> <treatment-b>",
		Short: "List products mutated only in treatment b",
		Long: `List the products found in the samples of treatment b and in no sample of
treatment a, with the number of treatment b samples carrying each.`,
		Example: `  bqh unique-products --strain "Comamonas testosteroni" 1 3
  bqh unique-products --strain "Comamonas testosteroni" --platform pacbio --file annotation.tsv 1 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strain == "" {
				return fmt.Errorf("--strain is required")
			}
			p := samples.Platform(platform)
			if p != samples.Illumina && p != samples.PacBio {
				return fmt.Errorf("unknown platform %q", platform)
			}
			if file == "" {
				file = strings.Join(effects.SNPsTab, "/")
			}

			r, err := loadRegistry()
			if err != nil {
				return err
			}
			if _, err := selectStrains(r, strain); err != nil {
				return err
			}

			s := effects.NewSummarizer(r)
			s.SetLogger(logger)
			hits, err := s.UniqueProducts(strain, args[0], args[1], p, file)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PRODUCT\tSAMPLES")
			for _, h := range hits {
				if h.Samples >= minSamples {
					fmt.Fprintf(tw, "%s\t%d\n", h.Product, h.Samples)
				}
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&strain, "strain", "", "strain (required)")
	cmd.Flags().StringVar(&platform, "platform", string(samples.Illumina), "illumina or pacbio")
	cmd.Flags().StringVar(&file, "file", "", "product table relative to the sample directory (default snippy/snps.tab)")
	cmd.Flags().IntVar(&minSamples, "min-samples", 1, "only list products carried by at least this many samples")
	return cmd
}
