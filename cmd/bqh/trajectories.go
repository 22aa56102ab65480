package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/evolab/bqh/internal/annotation"
	"github.com/evolab/bqh/internal/duckdb"
	"github.com/evolab/bqh/internal/plot"
	"github.com/evolab/bqh/internal/samples"
	"github.com/evolab/bqh/internal/snps"
	"github.com/evolab/bqh/internal/table"
)

func newTrajectoriesCmd() *cobra.Command {
	var (
		strain   string
		noFilter bool
		minQual  float64
		store    string
		refresh  bool
	)

	cmd := &cobra.Command{
		Use:   "trajectories",
		Short: "Plot SNP qualities, frequencies and trajectories per strain",
		Long: `Load the Illumina call sets of every sample, label each call with the
product of the enclosing GenBank feature and write, per strain:

  <plots>/<abbr>_phred_score.html
  <plots>/<abbr>_frequencies.html
  <plots>/<abbr>_trajectories.html
  <plots>/unique_genes_<abbr>_frequencies.html
  <plots>/unique_genes_<abbr>_trajectories.html
  <tables>/snps/<abbr>.csv

With a store path the annotated calls are also appended to DuckDB.
--min-qual turns the quality filter on even when quality.enabled is false.
--refresh-cache rebuilds the cached annotation indexes of the selected strains.`,
		Example: `  bqh trajectories --samples samples.yaml
  bqh trajectories --strain "Agrobacterium tumefaciens" --no-filter
  bqh trajectories --min-qual 30 --store results.duckdb
  bqh trajectories --refresh-cache`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := qualityFilter()
			if cmd.Flags().Changed("min-qual") {
				filter.MinQual = minQual
				filter.Enabled = true
			}
			if noFilter {
				filter = snps.NoFilter()
			}
			if !cmd.Flags().Changed("store") {
				store = viper.GetString("store.path")
			}
			return runTrajectories(cmd.Context(), strain, filter, store, refresh)
		},
	}

	cmd.Flags().StringVar(&strain, "strain", "", "only this strain (default: all)")
	cmd.Flags().BoolVar(&noFilter, "no-filter", false, "keep calls of any quality")
	cmd.Flags().Float64Var(&minQual, "min-qual", snps.DefaultMinQual, "minimum call quality")
	cmd.Flags().StringVar(&store, "store", "", "DuckDB file to append annotated calls to")
	cmd.Flags().BoolVar(&refresh, "refresh-cache", false, "discard cached annotation indexes before loading")

	return cmd
}

func runTrajectories(ctx context.Context, strain string, filter snps.Filter, storePath string, refresh bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	r, err := loadRegistry()
	if err != nil {
		return err
	}
	strains, err := selectStrains(r, strain)
	if err != nil {
		return err
	}

	loader := snps.NewLoader(filter)
	loader.SetLogger(logger)
	loader.SetWorkers(viper.GetInt("workers"))

	cache := duckdb.NewIndexCache(viper.GetString("cache.dir"))
	if refresh {
		refreshIndexCache(cache, r, strains)
	}
	joiner := annotation.NewJoiner(cache)
	joiner.SetLogger(logger)

	var store *duckdb.Store
	runID := uuid.NewString()
	if storePath != "" {
		store, err = duckdb.Open(storePath)
		if err != nil {
			return err
		}
		defer store.Close()
		logger.Info("storing annotated calls", zap.String("path", storePath), zap.String("run_id", runID))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, st := range strains {
		g.Go(func() error {
			annotated, err := annotateStrain(ctx, r, st, loader, joiner)
			if err != nil {
				return fmt.Errorf("strain %s: %w", st, err)
			}
			if store != nil {
				if err := store.WriteCalls(runID, st, annotated); err != nil {
					return fmt.Errorf("strain %s: store calls: %w", st, err)
				}
			}
			if err := writeTrajectoryOutputs(r.Abbreviation(st), annotated); err != nil {
				return fmt.Errorf("strain %s: %w", st, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// refreshIndexCache drops the cached annotation index of every strain.
func refreshIndexCache(cache *duckdb.IndexCache, r *samples.Registry, strains []string) {
	for _, st := range strains {
		path := r.GenBank(st)
		cache.Clear(path)
		logger.Debug("cleared annotation index cache", zap.String("strain", st), zap.String("path", path))
	}
}

// annotateStrain loads the Illumina calls of strain and labels them with
// products from the strain annotation.
func annotateStrain(ctx context.Context, r *samples.Registry, strain string, loader *snps.Loader, joiner *annotation.Joiner) ([]snps.SampleCalls, error) {
	scs, err := loader.LoadSamples(ctx, r.Filter(strain, samples.Illumina, ""))
	if err != nil {
		return nil, err
	}

	ix, err := joiner.LoadIndex(r.GenBank(strain))
	if err != nil {
		return nil, fmt.Errorf("load annotation: %w", err)
	}

	annotated := joiner.Join(ix, scs)
	n := 0
	for _, sc := range annotated {
		n += len(sc.Calls)
	}
	logger.Info("annotated calls",
		zap.String("strain", strain),
		zap.Int("samples", len(annotated)),
		zap.Int("calls", n))
	return annotated, nil
}

func writeTrajectoryOutputs(abbr string, annotated []snps.SampleCalls) error {
	all := table.Build(annotated, false)
	if err := all.WriteCSV(tablesDir("snps", abbr+".csv")); err != nil {
		return err
	}

	out := plotsDir(abbr)
	if err := plot.PhredScores(out, all); err != nil {
		return err
	}
	if err := plot.Frequencies(out, all); err != nil {
		return err
	}
	if err := plot.Trajectories(out, all); err != nil {
		return err
	}

	unique := table.Build(annotated, true)
	out = plotsDir(plot.UniqueGenesPrefix + abbr)
	if err := plot.Frequencies(out, unique); err != nil {
		return err
	}
	return plot.Trajectories(out, unique)
}
