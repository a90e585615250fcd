package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the CLI reads, e.g.
// URIORACLE_TOOL or URIORACLE_POLL_INTERVAL.
const EnvPrefix = "URIORACLE"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string

	v *viper.Viper
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Config returns the settings layer shared by subcommands: flags override
// environment, which overrides the config file.
func (o *RootOptions) Config() *viper.Viper {
	if o.v == nil {
		o.v = newConfig()
	}
	return o.v
}

func newConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfigFile merges a YAML, JSON or TOML settings file into v.
func loadConfigFile(v *viper.Viper, file string) error {
	if file == "" {
		return nil
	}
	ext := strings.TrimPrefix(filepath.Ext(file), ".")
	if ext == "" {
		return fmt.Errorf("config file %s has no extension", file)
	}
	v.SetConfigFile(file)
	v.SetConfigType(ext)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// NewRootCommand creates the root command for the urioracle CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "urioracle",
		Short: "Verification oracle for storage-URI migration tools",
		Long: `urioracle checks a metastore storage-URI migration tool against a reference
model. It drives the tool as a black box, seeds the metastore tables, predicts
every rewrite and compares the tool's report and the resulting tables with the
prediction.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return loadConfigFile(opts.Config(), opts.ConfigFile)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "settings file (.yaml, .json or .toml)")

	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewPredictCommand(opts))

	return cmd
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
