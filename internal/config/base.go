package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type BaseConfig struct {
	ShutdownTimeout string `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	Log      LogConfig      `mapstructure:"log"      yaml:"log"`
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Workers  WorkersConfig  `mapstructure:"workers"  yaml:"workers"`
}

func LoadConfig() (*BaseConfig, error) {
	cfg := &BaseConfig{}

	setDefaults()

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate rejects values that cannot be repaired by defaults.
func (cfg *BaseConfig) Validate() error {
	if cfg.Metadata.Type != "sqlite" {
		return fmt.Errorf("unsupported metadata type '%s'", cfg.Metadata.Type)
	}
	if cfg.Metadata.SQLite.Path == "" {
		return fmt.Errorf("metadata.sqlite.path is required")
	}

	switch cfg.Storage.Strategy {
	case StrategyAuto, StrategyDirect, StrategyMediated:
	default:
		return fmt.Errorf("unknown storage strategy '%s'", cfg.Storage.Strategy)
	}
	if cfg.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}

	switch cfg.Storage.Index.Volume {
	case VolumeDir, VolumeMinio:
	default:
		return fmt.Errorf("unknown index volume '%s'", cfg.Storage.Index.Volume)
	}

	if cfg.Workers.Items < 1 || cfg.Workers.Tags < 1 {
		return fmt.Errorf("worker counts must be at least 1")
	}

	return nil
}
