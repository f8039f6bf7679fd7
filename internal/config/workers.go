package config

// WorkersConfig sets the background worker count per repository queue.
type WorkersConfig struct {
	Items int `mapstructure:"items" yaml:"items"`
	Tags  int `mapstructure:"tags"  yaml:"tags"`
}
