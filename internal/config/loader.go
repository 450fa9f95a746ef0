package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from defaults, file, and environment, in
// that increasing order of precedence.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/metabasenet")
	}

	setDefaults(v)

	v.SetEnvPrefix("METABASENET")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("node.data_path", "./data")
	v.SetDefault("node.bucket_width_seconds", 3600)
	v.SetDefault("node.compress_chunks", true)
	v.SetDefault("node.mode", "SERVER")
	v.SetDefault("node.min_free_disk_bytes", int64(100*1024*1024))

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 6661)

	v.SetDefault("peer.dial_timeout", "5s")
	v.SetDefault("peer.lease_ttl_seconds", 10)

	v.SetDefault("eventbus.type", "memory")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
	v.SetDefault("logging.max_file_size_mb", 64)
	v.SetDefault("logging.max_history_files", 8)
}

// parseConfig parses viper config into a Config.
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from file, falling back to
// DefaultConfig on any error.
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			DataPath:           "./data",
			BucketWidthSeconds: 3600,
			CompressChunks:     true,
			Mode:               "SERVER",
			MinFreeDiskBytes:   100 * 1024 * 1024,
		},
		HTTP: HTTPConfig{
			Host: "0.0.0.0",
			Port: 6661,
		},
		Peer: PeerConfig{
			DialTimeout:     5 * time.Second,
			LeaseTTLSeconds: 10,
		},
		Bus: BusConfig{
			Type: "memory",
		},
		Logging: LoggingConfig{
			Level:           "info",
			Format:          "json",
			OutputPath:      "stdout",
			MaxFileSizeMB:   64,
			MaxHistoryFiles: 8,
		},
	}
}
