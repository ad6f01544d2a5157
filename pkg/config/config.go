// Package config describes the settings of a denoising run. Values are
// read from a YAML file and may be overridden from the command line.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// StatsPath is the path to the global mean/variance statistics.
	StatsPath       string  `yaml:"stats_path"`
	TruncateMinutes float64 `yaml:"truncate_minutes"`

	UseAcceleratedCompute bool `yaml:"use_accelerated_compute"`
	DeviceID              int  `yaml:"device_id"`

	Model             string `yaml:"model"`
	ModelPath         string `yaml:"model_path"`
	ONNXSharedLibrary string `yaml:"onnx_shared_library"`

	// MaskWorkerCommand overrides the command of the mask worker; by
	// default the current executable is re-executed.
	MaskWorkerCommand []string      `yaml:"mask_worker_command"`
	MaskTimeout       time.Duration `yaml:"mask_timeout"`

	FFmpegPath string `yaml:"ffmpeg_path"`
	Jobs       int    `yaml:"jobs"`
	VADReport  bool   `yaml:"vad_report"`
}

func Default() Config {
	return Config{
		TruncateMinutes:       10,
		UseAcceleratedCompute: true,
		Model:                 "onnx",
		FFmpegPath:            "ffmpeg",
		Jobs:                  1,
	}
}

// Load reads the YAML file at path on top of Default.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open config %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("unable to parse config %q: %w", path, err)
	}
	return cfg, nil
}

func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("unable to decode YAML: %w", err)
	}
	return &cfg, nil
}

// Validate returns all the problems found in cfg at once.
func (cfg *Config) Validate() error {
	var result *multierror.Error
	if cfg.StatsPath == "" {
		result = multierror.Append(result, fmt.Errorf("stats_path is not set"))
	}
	if !(cfg.TruncateMinutes > 0) {
		result = multierror.Append(result, fmt.Errorf("truncate_minutes must be positive, got %v", cfg.TruncateMinutes))
	}
	if cfg.DeviceID < 0 {
		result = multierror.Append(result, fmt.Errorf("device_id cannot be negative, got %d", cfg.DeviceID))
	}
	if cfg.Model == "" {
		result = multierror.Append(result, fmt.Errorf("model is not set"))
	}
	if cfg.MaskTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("mask_timeout cannot be negative, got %v", cfg.MaskTimeout))
	}
	if cfg.Jobs < 1 {
		result = multierror.Append(result, fmt.Errorf("jobs must be at least 1, got %d", cfg.Jobs))
	}
	if cfg.FFmpegPath == "" {
		result = multierror.Append(result, fmt.Errorf("ffmpeg_path is not set"))
	}
	return result.ErrorOrNil()
}
