package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

const (
	DefaultBatchSize = 100
	maxIOWorkers     = 32
)

// Configuration structure
type Config struct {
	WorkDir         string `json:"WorkDir"`         // Where archives are extracted and the report is written
	OutputDir       string `json:"OutputDir"`       // Optional: merge into copies under this root instead of in place
	Parallelism     int    `json:"Parallelism"`     // Concurrent exiftool invocations (0 = number of CPUs)
	IOParallelism   int    `json:"IOParallelism"`   // Concurrent file copies in output mode (0 = min(32, CPUs+4))
	BatchSize       int    `json:"BatchSize"`       // Files per merge batch (resource bounding only)
	WarningBehavior string `json:"WarningBehavior"` // "immediate", "summary", or "silent"
	KeepExtracted   bool   `json:"KeepExtracted"`   // Keep extracted trees after the run
}

// GetDefaultConfig returns a config with sensible defaults
func GetDefaultConfig() *Config {
	return &Config{
		WorkDir:         filepath.Join(os.TempDir(), "takeout-migrator"),
		BatchSize:       DefaultBatchSize,
		WarningBehavior: "summary",
	}
}

// ToolParallelism returns the effective size of the exiftool worker pool
func (cfg *Config) ToolParallelism() int {
	if cfg.Parallelism > 0 {
		return cfg.Parallelism
	}
	return runtime.NumCPU()
}

// CopyParallelism returns the effective size of the file-copy worker pool,
// following the min(32, CPUs+4) convention for I/O-bound work.
func (cfg *Config) CopyParallelism() int {
	if cfg.IOParallelism > 0 {
		return cfg.IOParallelism
	}
	n := runtime.NumCPU() + 4
	if n > maxIOWorkers {
		n = maxIOWorkers
	}
	return n
}

// EffectiveBatchSize returns the configured batch size or the default
func (cfg *Config) EffectiveBatchSize() int {
	if cfg.BatchSize > 0 {
		return cfg.BatchSize
	}
	return DefaultBatchSize
}

// Validate checks the config for values that would make a run impossible
func (cfg *Config) Validate() error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("work directory must be set")
	}
	if cfg.Parallelism < 0 {
		return fmt.Errorf("parallelism cannot be negative")
	}
	if cfg.BatchSize < 0 {
		return fmt.Errorf("batch size cannot be negative")
	}
	switch cfg.WarningBehavior {
	case "", "immediate", "summary", "silent":
	default:
		return fmt.Errorf("unknown warning behavior %q", cfg.WarningBehavior)
	}
	return nil
}

// CreateDirIfNotExists creates a directory if it does not exist
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

// SaveConfig saves configuration to a JSON file
func SaveConfig(filePath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	dir := filepath.Dir(filePath)
	if err := CreateDirIfNotExists(dir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
