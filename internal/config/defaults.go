package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

func dataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "memobox")
	}
	return ".memobox"
}

func GetDefault() BaseConfig {
	base := dataDir()

	return BaseConfig{
		ShutdownTimeout: "10s",

		Log: LogConfig{
			Level:      "INFO",
			TimeFormat: "2006-01-02 15:04:05",
			File:       "",
			NoColor:    false,
			JSON:       false,
			NoTerminal: false,
			Rotation: LogRotationConfig{
				MaxSize:    128,
				MaxBackups: 5,
				MaxAge:     16,
				Compress:   false,
			},
		},

		Metadata: MetadataConfig{
			Type: "sqlite",
			SQLite: MetadataSQLiteConfig{
				Path:        filepath.Join(base, "app_data.db"),
				BusyTimeout: 5000,
			},
		},

		Storage: StorageConfig{
			Strategy:  StrategyAuto,
			Root:      filepath.Join(base, "files"),
			ChunkSize: 8192,
			Index: StorageIndexConfig{
				Path:       "",
				Collection: "Download/memobox",
				Volume:     VolumeDir,
				VolumePath: filepath.Join(base, "volume"),
				Minio: StorageMinioConfig{
					Endpoint: "localhost:9000",
					Bucket:   "memobox",
					UseSSL:   false,
				},
			},
		},

		Workers: WorkersConfig{
			Items: 2,
			Tags:  1,
		},
	}
}

func setDefaults() {
	defaults := GetDefault()

	viper.SetDefault("shutdown_timeout", defaults.ShutdownTimeout)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.time_format", defaults.Log.TimeFormat)
	viper.SetDefault("log.file", defaults.Log.File)
	viper.SetDefault("log.no_color", defaults.Log.NoColor)
	viper.SetDefault("log.json", defaults.Log.JSON)
	viper.SetDefault("log.no_terminal", defaults.Log.NoTerminal)
	viper.SetDefault("log.rotation.max_size", defaults.Log.Rotation.MaxSize)
	viper.SetDefault("log.rotation.max_backups", defaults.Log.Rotation.MaxBackups)
	viper.SetDefault("log.rotation.max_age", defaults.Log.Rotation.MaxAge)
	viper.SetDefault("log.rotation.compress", defaults.Log.Rotation.Compress)

	viper.SetDefault("metadata.type", defaults.Metadata.Type)
	viper.SetDefault("metadata.sqlite.path", defaults.Metadata.SQLite.Path)
	viper.SetDefault("metadata.sqlite.busy_timeout", defaults.Metadata.SQLite.BusyTimeout)

	viper.SetDefault("storage.strategy", defaults.Storage.Strategy)
	viper.SetDefault("storage.root", defaults.Storage.Root)
	viper.SetDefault("storage.chunk_size", defaults.Storage.ChunkSize)
	viper.SetDefault("storage.index.path", defaults.Storage.Index.Path)
	viper.SetDefault("storage.index.collection", defaults.Storage.Index.Collection)
	viper.SetDefault("storage.index.volume", defaults.Storage.Index.Volume)
	viper.SetDefault("storage.index.volume_path", defaults.Storage.Index.VolumePath)
	viper.SetDefault("storage.index.minio.endpoint", defaults.Storage.Index.Minio.Endpoint)
	viper.SetDefault("storage.index.minio.bucket", defaults.Storage.Index.Minio.Bucket)
	viper.SetDefault("storage.index.minio.access_key", defaults.Storage.Index.Minio.AccessKey)
	viper.SetDefault("storage.index.minio.secret_key", defaults.Storage.Index.Minio.SecretKey)
	viper.SetDefault("storage.index.minio.use_ssl", defaults.Storage.Index.Minio.UseSSL)

	viper.SetDefault("workers.items", defaults.Workers.Items)
	viper.SetDefault("workers.tags", defaults.Workers.Tags)
}
