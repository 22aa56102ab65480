package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/evolab/bqh/internal/samples"
	"github.com/evolab/bqh/internal/snps"
)

const (
	configName       = ".bqh"
	envPrefix        = "BQH"
	defaultPlotsDir  = "plots"
	defaultTablesDir = "tables"
	defaultCacheDir  = ".bqh-cache"
)

func setDefaults() {
	viper.SetDefault("quality.min", snps.DefaultMinQual)
	viper.SetDefault("quality.enabled", true)
	viper.SetDefault("output.plots", defaultPlotsDir)
	viper.SetDefault("output.tables", defaultTablesDir)
	viper.SetDefault("store.path", "")
	viper.SetDefault("cache.dir", defaultCacheDir)
	viper.SetDefault("workers", 0)
}

// initConfig reads the config file and BQH_* environment variables.
// A missing config file is not an error.
func initConfig() error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigName(configName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// qualityFilter returns the configured call quality filter.
func qualityFilter() snps.Filter {
	return snps.Filter{
		MinQual: viper.GetFloat64("quality.min"),
		Enabled: viper.GetBool("quality.enabled"),
	}
}

func plotsDir(name ...string) string {
	return filepath.Join(append([]string{viper.GetString("output.plots")}, name...)...)
}

func tablesDir(name ...string) string {
	return filepath.Join(append([]string{viper.GetString("output.tables")}, name...)...)
}

// loadRegistry loads the configured sample sheet.
func loadRegistry() (*samples.Registry, error) {
	path := viper.GetString("samples")
	if path == "" {
		return nil, fmt.Errorf("no sample sheet configured (use --samples or 'bqh config set samples <path>')")
	}
	return samples.Load(path)
}

// selectStrains returns strain, or every strain when strain is empty.
func selectStrains(r *samples.Registry, strain string) ([]string, error) {
	if strain == "" {
		return r.Strains(), nil
	}
	if r.Strain(strain) == nil {
		return nil, fmt.Errorf("unknown strain %q", strain)
	}
	return []string{strain}, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bqh configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.bqh.yaml.",
		Example: `  bqh config                              # show all config
  bqh config set samples ~/bqh/samples.yaml  # set the sample sheet
  bqh config set quality.enabled false       # keep low-quality calls
  bqh config get quality.min                 # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd, args[0])
		},
	}
}

func runConfigShow(cmd *cobra.Command) error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(out))
	return nil
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	switch value {
	case "true", "yes", "on":
		viper.Set(key, true)
	case "false", "no", "off":
		viper.Set(key, false)
	default:
		viper.Set(key, value)
	}

	file := viper.ConfigFileUsed()
	if file == "" {
		file = cfgFile
	}
	if file == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		file = filepath.Join(home, configName+".yaml")
	}

	if err := viper.WriteConfigAs(file); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", key, value, file)
	return nil
}

func runConfigGet(cmd *cobra.Command, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), val)
	return nil
}
