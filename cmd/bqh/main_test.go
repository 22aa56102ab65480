package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evolab/bqh/internal/duckdb"
	"github.com/evolab/bqh/internal/samples"
	"github.com/evolab/bqh/internal/snps"
)

const strain = "Agrobacterium tumefaciens"

const sheet = `strains:
  - name: "Agrobacterium tumefaciens"
    abbreviation: "at"
    reference: "refs/at.fasta"
    treatments: ["1", "2"]
samples:
  - {name: "T11.2.1", strain: "Agrobacterium tumefaciens", platform: "illumina", treatment: "2", timepoint: "T11", cosm: "1", dir: "data/T11.2.1"}
  - {name: "T44.2.1", strain: "Agrobacterium tumefaciens", platform: "illumina", treatment: "2", timepoint: "T44", cosm: "1", dir: "data/T44.2.1"}
  - {name: "T44.1.1", strain: "Agrobacterium tumefaciens", platform: "illumina", treatment: "1", timepoint: "T44", cosm: "1", dir: "data/T44.1.1"}
  - {name: "pb.1.1", strain: "Agrobacterium tumefaciens", platform: "pacbio", treatment: "1", timepoint: "T44", cosm: "1", dir: "data/pb.1.1"}
`

const gbk = `LOCUS       c1                1000 bp    DNA     linear
FEATURES             Location/Qualifiers
     CDS             101..400
                     /product="geneA"
     CDS             451..600
                     /product="geneB"
//
`

const vcfHeader = "##fileformat=VCFv4.2\n#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO\n"

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// project lays out a one-strain experiment and returns its root.
func project(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "samples.yaml"), sheet)
	writeFile(t, filepath.Join(root, "refs", "at.fasta"), ">c1\nGGCCAATT\n")
	writeFile(t, filepath.Join(root, "refs", "at_stripped.gbk"), gbk)
	writeFile(t, filepath.Join(root, "data", "T11.2.1", "var.vcf"), vcfHeader+
		"c1\t500\t.\tA\tG\t80\t.\tDP=40;AO=10\n"+
		"c1\t120\t.\tA\tG\t10\t.\tDP=40;AO=2\n")
	writeFile(t, filepath.Join(root, "data", "T44.2.1", "var.vcf"), vcfHeader+
		"c1\t500\t.\tA\tG\t90\t.\tDP=40;AO=30\n"+
		"c1\t800\t.\tT\tC\t50\t.\tDP=10;AO=5\n")
	writeFile(t, filepath.Join(root, "data", "pb.1.1", "assembly.fasta"), ">ctg1\nGGCCAATTAA\n")
	return root
}

// execute runs the root command with a fresh configuration.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	cfgFile, verbose = "", false
	t.Setenv("HOME", t.TempDir())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func projectArgs(root string, args ...string) []string {
	return append([]string{
		"--samples", filepath.Join(root, "samples.yaml"),
		"--plots", filepath.Join(root, "plots"),
		"--tables", filepath.Join(root, "tables"),
	}, args...)
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return len(strings.Split(strings.TrimSpace(string(data)), "\n"))
}

func TestTrajectories(t *testing.T) {
	root := project(t)
	cache := filepath.Join(root, "cache")
	t.Setenv("BQH_CACHE_DIR", cache)
	db := filepath.Join(root, "calls.duckdb")

	_, err := execute(t, projectArgs(root, "trajectories", "--store", db)...)
	require.NoError(t, err)

	for _, name := range []string{
		"at_phred_score.html",
		"at_frequencies.html",
		"at_trajectories.html",
		"unique_genes_at_frequencies.html",
		"unique_genes_at_trajectories.html",
	} {
		assert.FileExists(t, filepath.Join(root, "plots", name))
	}
	assert.NoFileExists(t, filepath.Join(root, "plots", "unique_genes_at_phred_score.html"))

	// header + 3 calls with qual >= 20
	assert.Equal(t, 4, countLines(t, filepath.Join(root, "tables", "snps", "at.csv")))

	entries, err := os.ReadDir(cache)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "gob index and meta file")

	out, err := execute(t, "query", "--store", db, "products", strain)
	require.NoError(t, err)
	assert.Contains(t, out, "geneB")
	assert.NotContains(t, out, "intergenic")

	out, err = execute(t, "query", "--store", db, "calls", strain, "geneB")
	require.NoError(t, err)
	assert.Contains(t, out, "T11.2.1")
	assert.Contains(t, out, "T44.2.1")
}

func TestTrajectories_NoFilter(t *testing.T) {
	root := project(t)
	t.Setenv("BQH_CACHE_DIR", filepath.Join(root, "cache"))

	_, err := execute(t, projectArgs(root, "trajectories", "--no-filter")...)
	require.NoError(t, err)
	assert.Equal(t, 5, countLines(t, filepath.Join(root, "tables", "snps", "at.csv")))
}

func TestTrajectories_MinQual(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		args  []string
		lines int
	}{
		// header + quals 80, 90, 50
		{"enables disabled filter", "false", []string{"--min-qual", "30"}, 4},
		{"raises threshold", "true", []string{"--min-qual", "60"}, 3},
		{"no-filter wins", "true", []string{"--min-qual", "60", "--no-filter"}, 5},
		{"config disabled", "false", nil, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := project(t)
			t.Setenv("BQH_CACHE_DIR", filepath.Join(root, "cache"))
			t.Setenv("BQH_QUALITY_ENABLED", tt.env)

			_, err := execute(t, projectArgs(root, append([]string{"trajectories"}, tt.args...)...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.lines, countLines(t, filepath.Join(root, "tables", "snps", "at.csv")))
		})
	}
}

func TestTrajectories_EmptyCallSets(t *testing.T) {
	tests := []struct {
		name    string
		content map[string]string
	}{
		{"header only", map[string]string{"T11.2.1": vcfHeader, "T44.2.1": vcfHeader}},
		{"all below threshold", map[string]string{
			"T11.2.1": vcfHeader + "c1\t120\t.\tA\tG\t10\t.\tDP=40;AO=2\n",
			"T44.2.1": vcfHeader,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := project(t)
			t.Setenv("BQH_CACHE_DIR", filepath.Join(root, "cache"))
			for name, content := range tt.content {
				writeFile(t, filepath.Join(root, "data", name, "var.vcf"), content)
			}

			_, err := execute(t, projectArgs(root, "trajectories")...)
			require.NoError(t, err)

			data, err := os.ReadFile(filepath.Join(root, "tables", "snps", "at.csv"))
			require.NoError(t, err)
			assert.Equal(t, "micro_treat,timepoint,freq,qual,color,product\n", string(data))
			assert.FileExists(t, filepath.Join(root, "plots", "at_trajectories.html"))
			assert.FileExists(t, filepath.Join(root, "plots", "unique_genes_at_frequencies.html"))
		})
	}
}

func TestWriteTrajectoryOutputs_ZeroCalls(t *testing.T) {
	viper.Reset()
	dir := t.TempDir()
	viper.Set("output.plots", filepath.Join(dir, "plots"))
	viper.Set("output.tables", filepath.Join(dir, "tables"))

	smp := &samples.Sample{Name: "T44.2.1", Strain: strain, Platform: samples.Illumina, Treatment: "2", Timepoint: "T44", Cosm: "1"}
	for _, annotated := range [][]snps.SampleCalls{nil, {{Sample: smp}}} {
		require.NoError(t, writeTrajectoryOutputs("at", annotated))
		assert.Equal(t, 1, countLines(t, filepath.Join(dir, "tables", "snps", "at.csv")))
		assert.FileExists(t, filepath.Join(dir, "plots", "at_phred_score.html"))
		assert.FileExists(t, filepath.Join(dir, "plots", "unique_genes_at_trajectories.html"))
	}
}

func TestTrajectories_RefreshCache(t *testing.T) {
	root := project(t)
	cacheDir := filepath.Join(root, "cache")
	t.Setenv("BQH_CACHE_DIR", cacheDir)

	_, err := execute(t, projectArgs(root, "trajectories")...)
	require.NoError(t, err)

	r, err := samples.Load(filepath.Join(root, "samples.yaml"))
	require.NoError(t, err)
	cache := duckdb.NewIndexCache(cacheDir)
	_, ok := cache.Get(r.GenBank(strain))
	require.True(t, ok, "index cached by first run")

	refreshIndexCache(cache, r, []string{strain})
	_, ok = cache.Get(r.GenBank(strain))
	assert.False(t, ok, "index cleared")
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = execute(t, projectArgs(root, "trajectories", "--refresh-cache")...)
	require.NoError(t, err)
	_, ok = cache.Get(r.GenBank(strain))
	assert.True(t, ok, "index rebuilt after refresh")
	assert.Equal(t, 4, countLines(t, filepath.Join(root, "tables", "snps", "at.csv")))
}

func TestTrajectories_Errors(t *testing.T) {
	root := project(t)

	_, err := execute(t, "trajectories")
	assert.ErrorContains(t, err, "no sample sheet")

	_, err = execute(t, projectArgs(root, "trajectories", "--strain", "Escherichia coli")...)
	assert.ErrorContains(t, err, "unknown strain")
}

func TestQuery_NoStore(t *testing.T) {
	_, err := execute(t, "query", "products", strain)
	assert.ErrorContains(t, err, "no store configured")
}

func TestGCContentCmd(t *testing.T) {
	root := project(t)

	_, err := execute(t, projectArgs(root, "gc-content")...)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "tables", "gc_content", "gc_content.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "strain,gc content\n"))
	assert.Contains(t, string(data), strain+",50")
}

func TestAssemblyCmd(t *testing.T) {
	root := project(t)

	_, err := execute(t, projectArgs(root, "assembly")...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "plots", "genome_length", "assembly_length_in_Agrobacterium_tumefaciens.png"))
	assert.FileExists(t, filepath.Join(root, "plots", "contigs", "n_contigs_in_Agrobacterium_tumefaciens.png"))

	_, err = execute(t, projectArgs(root, "deletions")...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "plots", "deleted_bases", "deleted_bases_in_Agrobacterium_tumefaciens.png"))
}

func TestUniqueProductsCmd_Validation(t *testing.T) {
	root := project(t)

	_, err := execute(t, projectArgs(root, "unique-products", "1", "2")...)
	assert.ErrorContains(t, err, "--strain is required")

	_, err = execute(t, projectArgs(root, "unique-products", "--strain", strain, "--platform", "nanopore", "1", "2")...)
	assert.ErrorContains(t, err, "unknown platform")
}

func TestConfigSetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bqh.yaml")

	out, err := execute(t, "--config", path, "config", "set", "quality.min", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "Set quality.min = 30")

	out, err = execute(t, "--config", path, "config", "get", "quality.min")
	require.NoError(t, err)
	assert.Equal(t, "30\n", out)

	_, err = execute(t, "--config", path, "config", "get", "no.such.key")
	assert.ErrorContains(t, err, "is not set")
}

func TestConfigDefaults(t *testing.T) {
	_, err := execute(t, "config")
	require.NoError(t, err)

	f := qualityFilter()
	assert.True(t, f.Enabled)
	assert.Equal(t, 20.0, f.MinQual)
	assert.Equal(t, filepath.Join("plots", "x.html"), plotsDir("x.html"))
}
