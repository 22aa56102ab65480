package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evolab/bqh/internal/assembly"
	"github.com/evolab/bqh/internal/plot"
)

func toSampleValues(stats []assembly.SampleStat) []plot.SampleValue {
	out := make([]plot.SampleValue, len(stats))
	for i, s := range stats {
		out[i] = plot.SampleValue{Sample: s.Sample, Treatment: s.Treatment, Value: float64(s.Value)}
	}
	return out
}

func newDeletionsCmd() *cobra.Command {
	var strain string

	cmd := &cobra.Command{
		Use:   "deletions",
		Short: "Plot deleted bases of PacBio assemblies per treatment",
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

			s := assembly.NewSummarizer(r)
			s.SetLogger(logger)
			for _, st := range strains {
				stats, err := s.DeletedBases(st)
				if err != nil {
					return err
				}
				title := "deleted bases in " + st
				path := plotsDir("deleted_bases", plot.FileName(title, ".png"))
				if err := plot.TreatmentPanels(path, title, "sample", "deleted bp",
					r.Treatments(st), toSampleValues(stats), nil); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strain, "strain", "", "only this strain (default: all)")
	return cmd
}

func newAssemblyCmd() *cobra.Command {
	var strain string

	cmd := &cobra.Command{
		Use:   "assembly",
		Short: "Plot PacBio assembly length and contig counts per treatment",
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

			s := assembly.NewSummarizer(r)
			s.SetLogger(logger)
			for _, st := range strains {
				stats, err := s.AssemblyStats(st)
				if err != nil {
					return err
				}

				title := "assembly length in " + st
				ref := &plot.Reference{Label: "reference", Value: float64(stats.ReferenceLength)}
				if err := plot.TreatmentPanels(plotsDir("genome_length", plot.FileName(title, ".png")),
					title, "sample", "assembly length in bp", r.Treatments(st), toSampleValues(stats.Lengths), ref); err != nil {
					return err
				}

				title = "n contigs in " + st
				if err := plot.TreatmentPanels(plotsDir("contigs", plot.FileName(title, ".png")),
					title, "sample", "n contigs", r.Treatments(st), toSampleValues(stats.Contigs), nil); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strain, "strain", "", "only this strain (default: all)")
	return cmd
}

func newInsertionsCmd() *cobra.Command {
	var (
		minDistance int
		out         string
	)

	cmd := &cobra.Command{
		Use:   "insertions",
		Short: "Extract inserted sequences of PacBio assemblies",
		Long: `Read the insertions of every PacBio sample, attach the inserted sequence
from the sample assembly and drop insertions closer than --min-distance to a
contig end, unless they span the whole contig. Kept insertions are written as
CSV.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRegistry()
			if err != nil {
				return err
			}

			s := assembly.NewSummarizer(r)
			s.SetLogger(logger)
			ins, err := s.ParseInsertions()
			if err != nil {
				return err
			}
			kept, dropped := s.FilterInsertions(ins, minDistance)

			if out == "" {
				out = tablesDir("insertions", "insertions.csv")
			}
			if err := assembly.WriteInsertions(out, kept); err != nil {
				return err
			}
			logger.Info("wrote insertions",
				zap.String("path", out),
				zap.Int("kept", len(kept)),
				zap.Int("dropped", len(dropped)))
			return nil
		},
	}

	cmd.Flags().IntVar(&minDistance, "min-distance", 5000, "minimum distance to a contig end")
	cmd.Flags().StringVar(&out, "out", "", "output CSV (default <tables>/insertions/insertions.csv)")
	return cmd
}

func newGCContentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc-content",
		Short: "Write the GC content of every strain reference",
		Long:  "Write the GC content of every strain reference to <tables>/gc_content/gc_content.csv.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := loadRegistry()
			if err != nil {
				return err
			}

			s := assembly.NewSummarizer(r)
			s.SetLogger(logger)
			gc, err := s.GCContent()
			if err != nil {
				return err
			}
			return assembly.WriteGCContent(tablesDir("gc_content", "gc_content.csv"), gc)
		},
	}
}
