package permguard

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/permguard/audit"
	"github.com/MrEthical07/permguard/bitfield"
	"github.com/MrEthical07/permguard/jwt"
	"github.com/MrEthical07/permguard/metrics"
	"github.com/MrEthical07/permguard/permission"
	"github.com/MrEthical07/permguard/procedure"
	"github.com/MrEthical07/permguard/store"
	"github.com/sirupsen/logrus"
)

// Engine owns the permission table, the flag store, and token issuance, and
// observes every permission check it protects.
type Engine struct {
	config     Config
	table      *bitfield.Table
	roles      *permission.Roles
	store      *store.FlagStore
	jwtManager *jwt.Manager
	metrics    *metrics.Metrics
	audit      *audit.Dispatcher
	log        *logrus.Entry
}

// Protect returns base extended with a stage requiring every flag in
// required. Checks are reported to e.
func Protect[C permission.Context](e *Engine, base procedure.Builder[C], required any) procedure.Builder[C] {
	var opts []permission.Option
	if e != nil {
		opts = append(opts, permission.WithObserver(e))
	}
	return permission.CreatePermissionProtectedProcedure(base, required, opts...)
}

// Check authorizes a stored caller directly, without a procedure chain.
func (e *Engine) Check(ctx context.Context, tenantID, userID string, required any) (permission.Decision, error) {
	if e == nil {
		return permission.Decision{}, ErrEngineNotInitialized
	}
	ctx = WithCaller(ctx, tenantID, userID)

	start := time.Now()
	d, err := permission.Authorize(ctx, e.StoredCaller(tenantID, userID), required)
	e.ObservePermission(ctx, d, err, time.Since(start))
	return d, err
}

// StoredCaller returns a permission.Context whose flags are read from the
// store on every call.
func (e *Engine) StoredCaller(tenantID, userID string) permission.Context {
	return storedCaller{engine: e, tenantID: tenantID, userID: userID}
}

type storedCaller struct {
	engine   *Engine
	tenantID string
	userID   string
}

func (c storedCaller) UserPermissions(ctx context.Context) ([]string, error) {
	return c.engine.UserFlags(ctx, c.tenantID, c.userID)
}

func (c storedCaller) PermissionSet() *bitfield.Table {
	return c.engine.table
}

// ObservePermission records one permission check.
func (e *Engine) ObservePermission(ctx context.Context, d permission.Decision, err error, elapsed time.Duration) {
	if e == nil {
		return
	}
	e.metrics.Observe(metrics.CheckLatency, elapsed)

	caller, _ := CallerFromContext(ctx)
	fields := logrus.Fields{
		"tenant_id": caller.TenantID,
		"user_id":   caller.UserID,
		"elapsed":   elapsed,
	}

	switch {
	case err == nil && d.Allowed:
		e.metrics.Inc(metrics.PermissionGranted)
		e.emitAudit(ctx, auditEventPermissionGranted, true, nil, func() map[string]string {
			return map[string]string{"required": namesString(e.table.NamesOf(d.Required))}
		})
	case err == nil:
		e.metrics.Inc(metrics.PermissionDenied)
		fields["missing"] = d.Missing
		e.log.WithFields(fields).Debug("permission denied")
		e.emitAudit(ctx, auditEventPermissionDenied, false, errPermissionDenied, func() map[string]string {
			return map[string]string{
				"required": namesString(e.table.NamesOf(d.Required)),
				"missing":  namesString(d.Missing),
			}
		})
	case errors.Is(err, bitfield.ErrInvalidFlag):
		e.metrics.Inc(metrics.PermissionInvalidFlag)
		e.log.WithFields(fields).WithError(err).Error("permission check aborted by unknown flag")
		e.emitAudit(ctx, auditEventPermissionError, false, err, nil)
	case errors.Is(err, bitfield.ErrNegativeBits), errors.Is(err, bitfield.ErrUnresolvable):
		e.metrics.Inc(metrics.PermissionInvalidFlag)
		e.log.WithFields(fields).WithError(err).Error("permission check aborted by malformed mask")
		e.emitAudit(ctx, auditEventPermissionError, false, err, nil)
	default:
		e.metrics.Inc(metrics.PermissionFetchFailure)
		e.log.WithFields(fields).WithError(err).Warn("permission lookup failed")
		e.emitAudit(ctx, auditEventPermissionError, false, err, nil)
	}
}

// Table returns the frozen permission table.
func (e *Engine) Table() *bitfield.Table {
	if e == nil {
		return nil
	}
	return e.table
}

// Roles returns the frozen role set.
func (e *Engine) Roles() *permission.Roles {
	if e == nil {
		return nil
	}
	return e.roles
}

// Store returns the flag store.
func (e *Engine) Store() *store.FlagStore {
	if e == nil {
		return nil
	}
	return e.store
}

// Mode returns the configured validation mode.
func (e *Engine) Mode() ValidationMode {
	return e.config.ValidationMode
}

// Logger returns the engine logger.
func (e *Engine) Logger() *logrus.Entry {
	return e.log
}

// Close drains pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns the number of audit events dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDroppedByType returns dropped audit events keyed by event type, such
// as permission_granted.
func (e *Engine) AuditDroppedByType() map[string]uint64 {
	if e == nil {
		return map[string]uint64{}
	}
	return e.audit.DroppedByType()
}

// MetricsSnapshot returns current counter and histogram values.
func (e *Engine) MetricsSnapshot() metrics.Snapshot {
	if e == nil {
		return (*metrics.Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}
