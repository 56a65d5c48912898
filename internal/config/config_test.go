package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"midas/internal/detector"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Detector.Variant != detector.VariantMidasR {
		t.Errorf("expected variant=midas-r, got %s", cfg.Detector.Variant)
	}
	if cfg.Detector.Buckets != 769 {
		t.Errorf("expected Buckets=769, got %d", cfg.Detector.Buckets)
	}
	if cfg.Paths.Input != "in.csv" || cfg.Paths.Output != "out.csv" {
		t.Errorf("unexpected default paths: %+v", cfg.Paths)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "midas.yaml")

	cfg := DefaultConfig()
	cfg.Detector.Variant = detector.VariantMidas
	cfg.Detector.Seed = 1234
	cfg.Archive.Enabled = true

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Detector.Variant != detector.VariantMidas {
		t.Errorf("expected variant=midas, got %s", loaded.Detector.Variant)
	}
	if loaded.Detector.Seed != 1234 {
		t.Errorf("expected seed=1234, got %d", loaded.Detector.Seed)
	}
	if !loaded.Archive.Enabled {
		t.Error("expected archive enabled")
	}
}

func TestConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file failed: %v", err)
	}
	if cfg.Detector.Variant != detector.VariantMidasR {
		t.Errorf("expected defaults, got variant=%s", cfg.Detector.Variant)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("MIDAS_INPUT", "other.csv")
	t.Setenv("MIDAS_VARIANT", detector.VariantMidas)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paths.Input != "other.csv" {
		t.Errorf("expected input=other.csv, got %s", cfg.Paths.Input)
	}
	if cfg.Detector.Variant != detector.VariantMidas {
		t.Errorf("expected variant=midas, got %s", cfg.Detector.Variant)
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad variant", func(c *Config) { c.Detector.Variant = "nope" }},
		{"one bucket", func(c *Config) { c.Detector.Buckets = 1 }},
		{"zero rows", func(c *Config) { c.Detector.Rows = 0 }},
		{"alpha out of range", func(c *Config) { c.Detector.Alpha = 1.0 }},
		{"missing input", func(c *Config) { c.Paths.Input = "" }},
		{"same outputs", func(c *Config) { c.Paths.TestOutput = c.Paths.Output }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfig_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "midas.yaml")
	if err := os.WriteFile(path, []byte("detector: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfig_DebounceDuration(t *testing.T) {
	cfg := DefaultConfig()
	d, err := cfg.DebounceDuration()
	if err != nil {
		t.Fatal(err)
	}
	if d != 500*time.Millisecond {
		t.Errorf("default debounce = %v, want 500ms", d)
	}

	cfg.Watch.Debounce = ""
	if d, err = cfg.DebounceDuration(); err != nil || d != 500*time.Millisecond {
		t.Errorf("empty debounce = %v, %v; want 500ms fallback", d, err)
	}
}

func TestConfig_ParamsConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detector.Seed = 7
	p := cfg.Params()
	if p.Rows != cfg.Detector.Rows || p.Buckets != cfg.Detector.Buckets ||
		p.MValue != cfg.Detector.MValue || p.Alpha != cfg.Detector.Alpha || p.Seed != 7 {
		t.Errorf("Params() = %+v does not mirror %+v", p, cfg.Detector)
	}
}
