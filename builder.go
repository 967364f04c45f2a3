package permguard

import (
	"fmt"
	"os"

	"github.com/MrEthical07/permguard/audit"
	"github.com/MrEthical07/permguard/bitfield"
	"github.com/MrEthical07/permguard/jwt"
	"github.com/MrEthical07/permguard/metrics"
	"github.com/MrEthical07/permguard/permission"
	"github.com/MrEthical07/permguard/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	table       *bitfield.Table
	permissions []string
	roles       map[string][]string

	auditSink audit.Sink
	logger    *logrus.Entry

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the flag store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPermissions registers flag names, assigning bits in order.
func (b *Builder) WithPermissions(perms ...string) *Builder {
	b.permissions = append(b.permissions, perms...)
	return b
}

// WithTable uses an existing table instead of registering names.
func (b *Builder) WithTable(table *bitfield.Table) *Builder {
	b.table = table
	return b
}

// WithRoles defines named bundles of flags.
func (b *Builder) WithRoles(r map[string][]string) *Builder {
	b.roles = r
	return b
}

// WithAuditSink sets where audit events go when audit is enabled.
func (b *Builder) WithAuditSink(sink audit.Sink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger.
func (b *Builder) WithLogger(entry *logrus.Entry) *Builder {
	b.logger = entry
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the check latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, ErrBuilderUsed
	}
	if b.redis == nil {
		return nil, ErrRedisRequired
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- PERMISSION TABLE --------
	table, err := b.buildTable()
	if err != nil {
		return nil, err
	}

	// -------- ROLES --------
	roles := permission.NewRoles(table)
	for name, flags := range b.roles {
		if err := roles.Define(name, flags); err != nil {
			return nil, err
		}
	}
	roles.Freeze()

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, err
	}

	sink := b.auditSink
	if sink == nil && cfg.Audit.Enabled {
		sink = audit.NewJSONWriterSink(os.Stdout)
	}

	engine := &Engine{
		config:     cfg,
		table:      table,
		roles:      roles,
		store:      store.NewFlagStore(b.redis, cfg.Store.RedisPrefix, table),
		jwtManager: jm,
		metrics:    metrics.New(cfg.Metrics),
		audit:      audit.NewDispatcher(cfg.Audit, sink),
		log:        b.buildLogger(cfg.Logging),
	}

	b.built = true
	engine.log.WithFields(logrus.Fields{
		"flags": table.Len(),
		"roles": len(roles.Names()),
		"mode":  cfg.ValidationMode.String(),
	}).Debug("engine built")

	return engine, nil
}

func (b *Builder) buildTable() (*bitfield.Table, error) {
	if b.table != nil {
		if len(b.permissions) > 0 {
			return nil, fmt.Errorf("%w: use either WithTable or WithPermissions", ErrPermissionsRequired)
		}
		b.table.Freeze()
		return b.table, nil
	}
	if len(b.permissions) == 0 {
		return nil, ErrPermissionsRequired
	}

	table := bitfield.NewRegistryTable("Permissions")
	for _, name := range b.permissions {
		if _, err := table.Register(name); err != nil {
			return nil, err
		}
	}
	table.Freeze()
	return table, nil
}

func (b *Builder) buildLogger(cfg LoggingConfig) *logrus.Entry {
	if b.logger != nil {
		return b.logger
	}

	component := cfg.Component
	if component == "" {
		component = "permguard"
	}
	if cfg.Level == "" && !cfg.JSON {
		return logrus.WithField("component", component)
	}

	l := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		l.SetLevel(level)
	}
	if cfg.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l.WithField("component", component)
}
