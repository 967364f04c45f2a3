package permguard

import (
	"testing"
	"time"
)

func TestDefaultConfigNeedsKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected default config without keys to fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"zero ttl", func(c *Config) { c.JWT.AccessTTL = 0 }, true},
		{"bad method", func(c *Config) { c.JWT.SigningMethod = "rs256" }, true},
		{"hs256 without key", func(c *Config) { c.JWT.SigningMethod = "hs256"; c.JWT.PrivateKey = nil }, true},
		{"large leeway", func(c *Config) { c.JWT.Leeway = time.Hour }, true},
		{"empty prefix", func(c *Config) { c.Store.RedisPrefix = " " }, true},
		{"audit without buffer", func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 }, true},
		{"negative audit batch", func(c *Config) { c.Audit.BatchSize = -1 }, true},
		{"histograms without metrics", func(c *Config) { c.Metrics.Enabled = false }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"jwt only without mask", func(c *Config) { c.ValidationMode = ModeJWTOnly; c.JWT.OmitMask = true }, true},
		{"jwt only", func(c *Config) { c.ValidationMode = ModeJWTOnly }, false},
		{"unknown mode", func(c *Config) { c.ValidationMode = 9 }, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("wantErr=%v got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := testConfig(t)
	clone := cloneConfig(cfg)
	clone.JWT.PrivateKey[0] ^= 0xFF
	if cfg.JWT.PrivateKey[0] == clone.JWT.PrivateKey[0] {
		t.Fatal("expected key bytes to be copied")
	}
}
