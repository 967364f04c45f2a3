package permguard

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/permguard/audit"
	"github.com/MrEthical07/permguard/metrics"
	"github.com/sirupsen/logrus"
)

// Config is the engine configuration. Start from DefaultConfig and override
// what differs.
type Config struct {
	JWT            JWTConfig
	Store          StoreConfig
	Audit          audit.Config
	Metrics        metrics.Config
	Logging        LoggingConfig
	ValidationMode ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access token issuance.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	// OmitMask issues tokens without the mask claim. ModeJWTOnly cannot be
	// used with it.
	OmitMask bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the Redis flag store.
type StoreConfig struct {
	RedisPrefix string
}

/*
====================================
LOGGING CONFIG
====================================
*/

// LoggingConfig controls the logger built when none is supplied.
type LoggingConfig struct {
	// Level is a logrus level name. Empty keeps the standard logger.
	Level     string
	JSON      bool
	Component string
}

// ValidationMode selects where request-time flags come from.
type ValidationMode int

const (
	// ModeStrict reads flags from the store on every request.
	ModeStrict ValidationMode = iota
	// ModeJWTOnly trusts the mask carried in the access token.
	ModeJWTOnly
)

func (m ValidationMode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeJWTOnly:
		return "jwt_only"
	default:
		return "unknown"
	}
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Signing keys must still
// be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "permguard",
		},
		Store: StoreConfig{
			RedisPrefix: "pg",
		},
		Audit: audit.Config{
			Enabled:        false,
			BufferSize:     1024,
			DropIfFull:     true,
			RetainFailures: true,
			BatchSize:      64,
		},
		Metrics: metrics.Config{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Logging: LoggingConfig{
			Component: "permguard",
		},
		ValidationMode: ModeStrict,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Store
	if strings.TrimSpace(c.Store.RedisPrefix) == "" {
		return errors.New("Store RedisPrefix must not be empty")
	}
	if strings.Contains(c.Store.RedisPrefix, " ") {
		return errors.New("Store RedisPrefix must not contain spaces")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.BatchSize < 0 {
		return errors.New("Audit BatchSize must be >= 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	// Logging
	if c.Logging.Level != "" {
		if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
			return errors.New("Logging Level is not a valid logrus level")
		}
	}

	// Mode
	switch c.ValidationMode {
	case ModeStrict:
	case ModeJWTOnly:
		if c.JWT.OmitMask {
			return errors.New("ModeJWTOnly requires mask claims; JWT OmitMask must be false")
		}
	default:
		return errors.New("invalid ValidationMode")
	}

	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.PrivateKey = cloneBytes(c.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(c.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
