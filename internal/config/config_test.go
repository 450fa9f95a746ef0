package config

import "testing"

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "default config should be valid",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "invalid http port",
			config: &Config{
				Node: DefaultConfig().Node,
				HTTP: HTTPConfig{Port: 0},
				Peer: DefaultConfig().Peer,
				Logging: DefaultConfig().Logging,
			},
			wantErr: true,
		},
		{
			name: "missing data path",
			config: &Config{
				Node:    NodeConfig{Mode: "SERVER", BucketWidthSeconds: 3600},
				HTTP:    DefaultConfig().HTTP,
				Peer:    DefaultConfig().Peer,
				Logging: DefaultConfig().Logging,
			},
			wantErr: true,
		},
		{
			name: "unknown mode",
			config: &Config{
				Node: NodeConfig{
					DataPath:           "./data",
					BucketWidthSeconds: 3600,
					Mode:               "BOGUS",
				},
				HTTP:    DefaultConfig().HTTP,
				Peer:    DefaultConfig().Peer,
				Logging: DefaultConfig().Logging,
			},
			wantErr: true,
		},
		{
			name: "peer endpoints without dial timeout",
			config: &Config{
				Node: DefaultConfig().Node,
				HTTP: DefaultConfig().HTTP,
				Peer: PeerConfig{EtcdEndpoints: []string{"http://localhost:2379"}},
				Logging: DefaultConfig().Logging,
			},
			wantErr: true,
		},
		{
			name: "invalid logging level",
			config: &Config{
				Node: DefaultConfig().Node,
				HTTP: DefaultConfig().HTTP,
				Peer: DefaultConfig().Peer,
				Logging: LoggingConfig{
					Level:           "invalid",
					Format:          "json",
					MaxFileSizeMB:   64,
					MaxHistoryFiles: 8,
				},
			},
			wantErr: true,
		},
		{
			name: "log file size out of range",
			config: &Config{
				Node: DefaultConfig().Node,
				HTTP: DefaultConfig().HTTP,
				Peer: DefaultConfig().Peer,
				Logging: LoggingConfig{
					Level:           "info",
					Format:          "json",
					MaxFileSizeMB:   4096,
					MaxHistoryFiles: 8,
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Node.Mode != "SERVER" {
		t.Errorf("expected mode SERVER, got %s", cfg.Node.Mode)
	}
	if cfg.Node.BucketWidthSeconds != 3600 {
		t.Errorf("expected bucket width 3600, got %d", cfg.Node.BucketWidthSeconds)
	}
	if cfg.HTTP.Port != 6661 {
		t.Errorf("expected http port 6661, got %d", cfg.HTTP.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigHelpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.IsDevelopment() {
		t.Error("default config should not be development mode")
	}

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"
	if !cfg.IsDevelopment() {
		t.Error("config with debug/console should be development mode")
	}

	dataPath := cfg.GetDataPath("blockchain")
	if dataPath != "data/blockchain" {
		t.Errorf("expected 'data/blockchain', got %s", dataPath)
	}

	if addr := cfg.GetHTTPAddress(); addr != "0.0.0.0:6661" {
		t.Errorf("expected '0.0.0.0:6661', got %s", addr)
	}
}
