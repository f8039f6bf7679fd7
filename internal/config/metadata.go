package config

// MetadataConfig holds relational store configuration
type MetadataConfig struct {
	Type   string               `mapstructure:"type"   yaml:"type"`
	SQLite MetadataSQLiteConfig `mapstructure:"sqlite" yaml:"sqlite"`
}

// MetadataSQLiteConfig holds SQLite-specific configuration
type MetadataSQLiteConfig struct {
	Path        string `mapstructure:"path"         yaml:"path"`
	BusyTimeout int    `mapstructure:"busy_timeout" yaml:"busy_timeout"`
}
