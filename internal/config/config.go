// Package config holds the midas configuration: detector parameters, the
// pipeline file layout and the optional run archive. Configuration lives in
// a midas.yaml file; a handful of settings can be overridden through the
// environment for CI use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"midas/internal/detector"
)

// DefaultFileName is the config file looked up in the workspace.
const DefaultFileName = "midas.yaml"

// Config holds all midas configuration.
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Paths    PathsConfig    `yaml:"paths"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DetectorConfig selects and parameterizes the scoring algorithm.
type DetectorConfig struct {
	Variant string  `yaml:"variant"` // midas, midas-r
	Rows    uint64  `yaml:"rows"`
	Buckets uint64  `yaml:"buckets"`
	MValue  uint64  `yaml:"m_value"`
	Alpha   float64 `yaml:"alpha"`
	Seed    uint64  `yaml:"seed"` // 0 = variant default
}

// PathsConfig names the pipeline artifacts.
type PathsConfig struct {
	Input      string `yaml:"input"`       // edge stream CSV
	Output     string `yaml:"output"`      // reference score CSV
	TestOutput string `yaml:"test_output"` // verification score CSV
}

// ArchiveConfig configures the SQLite run archive.
type ArchiveConfig struct {
	Enabled      bool    `yaml:"enabled"`
	DatabasePath string  `yaml:"database_path"`
	Threshold    float64 `yaml:"threshold"` // minimum score worth archiving
}

// WatchConfig configures the input file watcher.
type WatchConfig struct {
	Debounce string `yaml:"debounce"` // e.g. "500ms"
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the reference configuration: MIDAS-R with the
// canonical sketch dimensions, scoring in.csv against out.csv.
func DefaultConfig() *Config {
	return &Config{
		Detector: DetectorConfig{
			Variant: detector.VariantMidasR,
			Rows:    detector.DefaultRows,
			Buckets: detector.DefaultBuckets,
			MValue:  detector.DefaultMValue,
			Alpha:   detector.DefaultAlpha,
		},
		Paths: PathsConfig{
			Input:      "in.csv",
			Output:     "out.csv",
			TestOutput: "test.out.csv",
		},
		Archive: ArchiveConfig{
			Enabled:      false,
			DatabasePath: "midas.db",
			Threshold:    1.0,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
	}
}

// Load reads a config file and applies environment overrides. A missing
// file yields the defaults rather than an error, so the tool runs without
// any setup in a directory holding in.csv.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides lets CI redirect the pipeline without editing the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MIDAS_INPUT"); v != "" {
		c.Paths.Input = v
	}
	if v := os.Getenv("MIDAS_OUTPUT"); v != "" {
		c.Paths.Output = v
	}
	if v := os.Getenv("MIDAS_VARIANT"); v != "" {
		c.Detector.Variant = v
	}
	if v := os.Getenv("MIDAS_DB"); v != "" {
		c.Archive.DatabasePath = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Detector.Variant {
	case detector.VariantMidas, detector.VariantMidasR:
	default:
		return fmt.Errorf("config: unknown detector variant %q", c.Detector.Variant)
	}
	if c.Detector.Buckets < 2 {
		return fmt.Errorf("config: detector.buckets must be at least 2, got %d", c.Detector.Buckets)
	}
	if c.Detector.Rows < 1 {
		return fmt.Errorf("config: detector.rows must be at least 1, got %d", c.Detector.Rows)
	}
	if c.Detector.Alpha <= 0 || c.Detector.Alpha >= 1 {
		return fmt.Errorf("config: detector.alpha must be in (0, 1), got %v", c.Detector.Alpha)
	}
	if c.Paths.Input == "" || c.Paths.Output == "" || c.Paths.TestOutput == "" {
		return fmt.Errorf("config: paths.input, paths.output and paths.test_output are required")
	}
	if c.Paths.Output == c.Paths.TestOutput {
		return fmt.Errorf("config: paths.output and paths.test_output must differ")
	}
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	return nil
}

// Params converts the detector section to detector.Params.
func (c *Config) Params() detector.Params {
	return detector.Params{
		Rows:    c.Detector.Rows,
		Buckets: c.Detector.Buckets,
		MValue:  c.Detector.MValue,
		Alpha:   c.Detector.Alpha,
		Seed:    c.Detector.Seed,
	}
}

// DebounceDuration parses the watch debounce setting.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return 500 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("config: watch.debounce: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: watch.debounce must be positive, got %v", d)
	}
	return d, nil
}
