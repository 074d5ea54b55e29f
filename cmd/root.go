// Package cmd provides the command-line interface for bindc with
// configuration management supporting multiple configuration sources.
//
// Configuration System:
//
//	The CLI supports flexible configuration through multiple sources with clear precedence:
//	1. Command-line flags (--config, --strict, etc.) - highest priority
//	2. BINDC_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (BINDC_SERVER_PORT, etc.)
//	4. Configuration files (.bindc.yml) - lowest priority
//
// Environment Variables:
//
//	BINDC_CONFIG_FILE: Path to custom configuration file
//	BINDC_SERVER_PORT: Override server port
//	BINDC_BUILD_STRICT: Treat silent classic fallbacks as errors
//	And more following the BINDC_<SECTION>_<OPTION> pattern
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bindc-dev/bindc/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bindc",
	Short: "Build-time binding compiler for markup documents",
	Long: `bindc compiles data-binding expressions in markup documents against
Go view-model types, turning runtime reflection into generated accessors and
build errors for invalid binding paths.

Key Features:
  • Document and view-model discovery
  • Build-time binding path validation
  • Typed accessor code generation
  • Watch mode with incremental rebuilds
  • Live diagnostics server with WebSocket updates

Quick Start:
  bindc compile                   Compile all documents
  bindc check                     Validate bindings without generating code
  bindc list                      List documents and their bindings
  bindc watch                     Recompile on file changes
  bindc serve                     Start the diagnostics server

Command Aliases (for faster typing):
  compile (c), check (k), list (l), watch (w), serve (s)`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .bindc.yml, can also use BINDC_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes the configuration system.
//
// Configuration Loading Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. BINDC_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .bindc.yml in current directory
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("BINDC_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bindc")
	}

	// Enable automatic environment variable binding with BINDC_ prefix
	// Examples: BINDC_SERVER_PORT, BINDC_BUILD_STRICT, BINDC_GENERATE_PACKAGE
	viper.SetEnvPrefix("BINDC")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// If the file doesn't exist or has errors, Viper falls back to defaults.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger builds the structured logger from the --log-level flag.
func newLogger() logging.Logger {
	logCfg := logging.DefaultConfig()
	logCfg.Level = logging.ParseLevel(viper.GetString("log-level"))
	return logging.NewLogger(logCfg)
}
