package terrainconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Config holds the tunables of a terrain store and its streaming worker.
type Config struct {
	CacheCapacity  int           `json:"cache_capacity"`
	StreamRadius   int           `json:"stream_radius"`   // prefetch radius in world units
	WorkerInterval time.Duration `json:"worker_interval"` // pause between worker passes
	PrefetchRate   float64       `json:"prefetch_rate"`   // chunk loads per second (0 = unthrottled)
	DataDir        string        `json:"data_dir"`        // where fetched biome bundles are staged
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CacheCapacity:  64,
		StreamRadius:   8,
		WorkerInterval: 500 * time.Millisecond,
		DataDir:        "./data",
	}
}

// Load reads path into cfg. If the file does not exist, cfg is unchanged.
func Load(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Save writes cfg to path atomically using a temp file + rename.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Merge applies file-loaded config values into cfg, but only for fields
// that were NOT explicitly set via CLI flags. explicitFlags contains the
// flag names that were explicitly provided on the command line.
func Merge(cfg *Config, fromFile *Config, explicitFlags map[string]bool) {
	if !explicitFlags["cache-capacity"] {
		cfg.CacheCapacity = fromFile.CacheCapacity
	}
	if !explicitFlags["stream-radius"] {
		cfg.StreamRadius = fromFile.StreamRadius
	}
	if !explicitFlags["worker-interval"] {
		cfg.WorkerInterval = fromFile.WorkerInterval
	}
	if !explicitFlags["prefetch-rate"] {
		cfg.PrefetchRate = fromFile.PrefetchRate
	}
	if !explicitFlags["data-dir"] {
		cfg.DataDir = fromFile.DataDir
	}
}
