// Package config provides configuration management for bindc using Viper for
// flexible configuration loading from files, environment variables, and
// command-line flags.
//
// The configuration system supports YAML files, environment variable overrides
// with BINDC_ prefix, validation, and path safety checks. It manages document
// and type scan paths, code generation output, the build pipeline, and the
// diagnostics server.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Documents   DocumentsConfig   `yaml:"documents"`
	Types       TypesConfig       `yaml:"types"`
	Generate    GenerateConfig    `yaml:"generate"`
	Build       BuildConfig       `yaml:"build"`
	Server      ServerConfig      `yaml:"server"`
	Development DevelopmentConfig `yaml:"development"`
	TargetFiles []string          `yaml:"-"` // CLI arguments, not from config file
}

type DocumentsConfig struct {
	ScanPaths       []string `yaml:"scan_paths"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

type TypesConfig struct {
	ScanPaths       []string `yaml:"scan_paths"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

type GenerateConfig struct {
	OutputDir string `yaml:"output_dir"`
	Package   string `yaml:"package"`
	// TypesImport is the import path of the view-model package; generated
	// files qualify type references with it when set.
	TypesImport string `yaml:"types_import"`
}

type BuildConfig struct {
	Workers  int    `yaml:"workers"`
	CacheDir string `yaml:"cache_dir"`
	Strict   bool   `yaml:"strict"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type DevelopmentConfig struct {
	DebounceMs int  `yaml:"debounce_ms"`
	Verbose    bool `yaml:"verbose"`
}

func Load() (*Config, error) {
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Apply defaults for document scan paths only if not explicitly set
	if !viper.IsSet("documents.scan_paths") && len(config.Documents.ScanPaths) == 0 {
		config.Documents.ScanPaths = []string{"./views", "./pages"}
	}

	// Handle scan_paths set via viper (workaround for viper slice handling)
	if viper.IsSet("documents.scan_paths") && len(config.Documents.ScanPaths) == 0 {
		scanPaths := viper.GetStringSlice("documents.scan_paths")
		if len(scanPaths) > 0 {
			config.Documents.ScanPaths = scanPaths
		}
	}
	if viper.IsSet("types.scan_paths") && len(config.Types.ScanPaths) == 0 {
		scanPaths := viper.GetStringSlice("types.scan_paths")
		if len(scanPaths) > 0 {
			config.Types.ScanPaths = scanPaths
		}
	}

	if len(config.Types.ScanPaths) == 0 {
		config.Types.ScanPaths = []string{"./viewmodels", "."}
	}

	if len(config.Documents.ExcludePatterns) == 0 {
		config.Documents.ExcludePatterns = []string{"*.bak", "node_modules", ".git"}
	}
	if len(config.Types.ExcludePatterns) == 0 {
		config.Types.ExcludePatterns = []string{"*_test.go", "vendor", ".git"}
	}

	// Apply default values for GenerateConfig if not set
	if config.Generate.OutputDir == "" {
		config.Generate.OutputDir = "bindings"
	}
	if config.Generate.Package == "" {
		config.Generate.Package = "bindings"
	}

	// Apply default values for BuildConfig if not set
	if config.Build.Workers <= 0 {
		config.Build.Workers = 4
	}
	if config.Build.CacheDir == "" {
		config.Build.CacheDir = ".bindc/cache"
	}
	if viper.IsSet("build.strict") {
		config.Build.Strict = viper.GetBool("build.strict")
	}

	// Apply default values for ServerConfig if not set
	if config.Server.Port == 0 && !viper.IsSet("server.port") {
		config.Server.Port = 7331
	}
	if config.Server.Host == "" {
		config.Server.Host = "localhost"
	}

	if config.Development.DebounceMs <= 0 {
		config.Development.DebounceMs = 300
	}

	// Validate configuration values
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values for safety and correctness
func validateConfig(config *Config) error {
	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateBuildConfig(&config.Build); err != nil {
		return fmt.Errorf("build config: %w", err)
	}

	for _, path := range config.Documents.ScanPaths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid document scan path '%s': %w", path, err)
		}
	}
	for _, path := range config.Types.ScanPaths {
		if err := validatePath(path); err != nil {
			return fmt.Errorf("invalid type scan path '%s': %w", path, err)
		}
	}

	if err := validatePath(config.Generate.OutputDir); err != nil {
		return fmt.Errorf("invalid generate output dir '%s': %w", config.Generate.OutputDir, err)
	}

	return nil
}

// validateServerConfig validates diagnostics server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Validate port range (allow 0 for system-assigned ports in testing)
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	if config.Host != "" {
		// Basic validation - no dangerous characters
		dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\"}
		for _, char := range dangerousChars {
			if strings.Contains(config.Host, char) {
				return fmt.Errorf("host contains dangerous character: %s", char)
			}
		}
	}

	return nil
}

// validateBuildConfig validates build configuration values
func validateBuildConfig(config *BuildConfig) error {
	if config.Workers < 1 || config.Workers > 64 {
		return fmt.Errorf("workers %d is not in valid range 1-64", config.Workers)
	}

	if config.CacheDir != "" {
		cleanPath := filepath.Clean(config.CacheDir)

		if strings.Contains(cleanPath, "..") {
			return fmt.Errorf("cache_dir contains path traversal: %s", config.CacheDir)
		}

		// Should be relative path for safety
		if filepath.IsAbs(cleanPath) {
			return fmt.Errorf("cache_dir should be relative path: %s", config.CacheDir)
		}
	}

	return nil
}

// validatePath validates a file path for safety
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path contains traversal: %s", path)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'"}
	for _, char := range dangerousChars {
		if strings.Contains(cleanPath, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
