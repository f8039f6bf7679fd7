package config

const (
	StrategyAuto     = "auto"
	StrategyDirect   = "direct"
	StrategyMediated = "mediated"

	VolumeDir   = "dir"
	VolumeMinio = "minio"
)

// StorageConfig selects and configures the file storage backend.
// Strategy "auto" probes whether the content index can be opened.
type StorageConfig struct {
	Strategy  string             `mapstructure:"strategy"   yaml:"strategy"`
	Root      string             `mapstructure:"root"       yaml:"root"`
	ChunkSize int                `mapstructure:"chunk_size" yaml:"chunk_size"`
	Index     StorageIndexConfig `mapstructure:"index"      yaml:"index"`
}

// StorageIndexConfig configures the content index used by the mediated strategy.
type StorageIndexConfig struct {
	Path       string             `mapstructure:"path"        yaml:"path"`
	Collection string             `mapstructure:"collection"  yaml:"collection"`
	Volume     string             `mapstructure:"volume"      yaml:"volume"`
	VolumePath string             `mapstructure:"volume_path" yaml:"volume_path"`
	Minio      StorageMinioConfig `mapstructure:"minio"       yaml:"minio"`
}

type StorageMinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"   yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket"     yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"    yaml:"use_ssl"`
}
