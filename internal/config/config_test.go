package config

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Search.DefaultTimeout() != 5*time.Second {
		t.Errorf("DefaultTimeout = %v", cfg.Search.DefaultTimeout())
	}
	if cfg.Search.DefaultPageSize != 20 || cfg.Search.MaxPageSize != 200 {
		t.Errorf("page sizes = %d/%d", cfg.Search.DefaultPageSize, cfg.Search.MaxPageSize)
	}
	if cfg.Search.ProgressiveBatchSize != 50 {
		t.Errorf("ProgressiveBatchSize = %d", cfg.Search.ProgressiveBatchSize)
	}
	if cfg.Search.IDPrefix != "SG COM" {
		t.Errorf("IDPrefix = %q", cfg.Search.IDPrefix)
	}
	if cfg.Search.MaxFallbackResults != 1000 || cfg.Search.MaxRetries != 2 {
		t.Errorf("recovery tuning = %d/%d", cfg.Search.MaxFallbackResults, cfg.Search.MaxRetries)
	}
	if cfg.Search.RetryBaseDelay() != time.Second {
		t.Errorf("RetryBaseDelay = %v", cfg.Search.RetryBaseDelay())
	}
	if cfg.Search.StatusResolver != ResolverNone {
		t.Errorf("StatusResolver = %q", cfg.Search.StatusResolver)
	}
	if cfg.Index.BuildWorkers != max(runtime.NumCPU()/2, 1) {
		t.Errorf("BuildWorkers = %d", cfg.Index.BuildWorkers)
	}
	if cfg.Recovery.HistoryCapacity != 100 {
		t.Errorf("HistoryCapacity = %d", cfg.Recovery.HistoryCapacity)
	}
	if cfg.History.Driver != DriverMemory || cfg.History.KeyPrefix != "contactdex" || cfg.History.MaxEntries != 500 {
		t.Errorf("history = %+v", cfg.History)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{Search: SearchConfig{IDPrefix: "ACME", MaxPageSize: 50}}
	cfg.ApplyDefaults()

	if cfg.Search.IDPrefix != "ACME" || cfg.Search.MaxPageSize != 50 {
		t.Errorf("search = %+v", cfg.Search)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Config{HTTP: HTTPConfig{Port: 8080}}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.HTTP.Port = 70000 }, wantErr: "http.port"},
		{
			name:    "page size above max",
			mutate:  func(c *Config) { c.Search.DefaultPageSize = 500 },
			wantErr: "search.default_page_size",
		},
		{
			name:    "redis without addrs",
			mutate:  func(c *Config) { c.History.Driver = DriverRedis },
			wantErr: "history.addrs",
		},
		{
			name: "redis with addrs",
			mutate: func(c *Config) {
				c.History.Driver = DriverRedis
				c.History.Addrs = []string{"localhost:6379"}
			},
		},
		{
			name:    "badger without path",
			mutate:  func(c *Config) { c.History.Driver = DriverBadger },
			wantErr: "history.path",
		},
		{
			name:   "phone length resolver",
			mutate: func(c *Config) { c.Search.StatusResolver = ResolverPhoneLength },
		},
		{
			name:    "unknown resolver",
			mutate:  func(c *Config) { c.Search.StatusResolver = "hlr" },
			wantErr: "search.status_resolver",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.History.Driver = "sqlite" },
			wantErr: "history.driver",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("CONTACTDEX_PORT", "9090")
	t.Setenv("CONTACTDEX_KEY", "")

	data := []byte(`
http:
  port: ${CONTACTDEX_PORT}
auth:
  api_keys: ["${CONTACTDEX_KEY:-dev-key}"]
search:
  id_prefix: "ABC"
`)

	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("Port = %d", cfg.HTTP.Port)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0] != "dev-key" {
		t.Errorf("APIKeys = %v", cfg.Auth.APIKeys)
	}
	if cfg.Search.IDPrefix != "ABC" {
		t.Errorf("IDPrefix = %q", cfg.Search.IDPrefix)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Parse([]byte("http:\n  port: 0\n")); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_LocalConfig(t *testing.T) {
	cfg, err := Load("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HTTP.Port == 0 {
		t.Error("expected port from local.yaml")
	}
}
