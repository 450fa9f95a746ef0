package config

import (
	"fmt"
	"time"
)

// Config represents the complete node configuration.
type Config struct {
	Node    NodeConfig    `mapstructure:"node"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Peer    PeerConfig    `mapstructure:"peer"`
	Bus     BusConfig     `mapstructure:"eventbus"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// NodeConfig configures the entry sequencer and the CTSDB databases
// it opens.
type NodeConfig struct {
	DataPath           string `mapstructure:"data_path"`
	BucketWidthSeconds  int64  `mapstructure:"bucket_width_seconds"`
	CompressChunks      bool   `mapstructure:"compress_chunks"`
	Mode                string `mapstructure:"mode"`
	MinFreeDiskBytes    int64  `mapstructure:"min_free_disk_bytes"`
}

// HTTPConfig configures the HTTPSERVER module's fiber listener.
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PeerConfig configures the optional etcd-backed peer directory the
// NETWORK module registers into.
type PeerConfig struct {
	EtcdEndpoints   []string      `mapstructure:"etcd_endpoints"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	NodeID          string        `mapstructure:"node_id"`
	AdvertiseAddr   string        `mapstructure:"advertise_addr"`
	LeaseTTLSeconds int64         `mapstructure:"lease_ttl_seconds"`
}

// BusConfig configures the process's event bus backend.
type BusConfig struct {
	Type     string `mapstructure:"type"`
	URL      string `mapstructure:"url"`
	Password string `mapstructure:"password"`

	RedisDB     int    `mapstructure:"redis_db"`
	RedisStream string `mapstructure:"redis_stream"`
	RedisGroup  string `mapstructure:"redis_group"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaGroupID string   `mapstructure:"kafka_group_id"`

	ConsumerName string `mapstructure:"consumer_name"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level           string `mapstructure:"level"`             // debug, info, warn, error
	Format          string `mapstructure:"format"`            // json, console
	OutputPath      string `mapstructure:"output_path"`       // stdout, stderr, file path
	TimeFormat      string `mapstructure:"time_format"`       // RFC3339, Unix, Kitchen
	MaxFileSizeMB   int    `mapstructure:"max_file_size_mb"`   // rotation cap, 1-2048
	MaxHistoryFiles int    `mapstructure:"max_history_files"`  // rotation cap, 2-0x7FFFFFFF
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node config: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}
	if err := c.Peer.Validate(); err != nil {
		return fmt.Errorf("peer config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate validates node configuration.
func (c *NodeConfig) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("data_path is required")
	}
	if c.BucketWidthSeconds <= 0 {
		return fmt.Errorf("bucket_width_seconds must be positive")
	}
	switch c.Mode {
	case "SERVER", "MINER", "CLIENT", "PURGE":
	default:
		return fmt.Errorf("mode must be one of SERVER, MINER, CLIENT, PURGE, got %q", c.Mode)
	}
	if c.MinFreeDiskBytes < 0 {
		return fmt.Errorf("min_free_disk_bytes cannot be negative")
	}
	return nil
}

// Validate validates HTTP configuration.
func (c *HTTPConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid http.port: %d", c.Port)
	}
	return nil
}

// Validate validates peer directory configuration. An empty endpoint
// list leaves the peer directory disabled, which is valid.
func (c *PeerConfig) Validate() error {
	if len(c.EtcdEndpoints) == 0 {
		return nil
	}
	if c.DialTimeout <= 0 {
		return fmt.Errorf("peer.dial_timeout must be positive when etcd_endpoints is set")
	}
	if c.LeaseTTLSeconds <= 0 {
		return fmt.Errorf("peer.lease_ttl_seconds must be positive when etcd_endpoints is set")
	}
	return nil
}

// Validate validates logging configuration.
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	if c.MaxFileSizeMB < 1 || c.MaxFileSizeMB > 2048 {
		return fmt.Errorf("logging.max_file_size_mb must be in [1, 2048]")
	}
	if c.MaxHistoryFiles < 2 || c.MaxHistoryFiles > 0x7FFFFFFF {
		return fmt.Errorf("logging.max_history_files must be in [2, 2147483647]")
	}

	return nil
}
