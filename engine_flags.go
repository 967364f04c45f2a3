package permguard

import (
	"context"

	"github.com/MrEthical07/permguard/metrics"
)

// UserFlags returns the flag names stored for a caller.
func (e *Engine) UserFlags(ctx context.Context, tenantID, userID string) ([]string, error) {
	if e == nil {
		return nil, ErrEngineNotInitialized
	}
	flags, err := e.store.Flags(ctx, tenantID, userID)
	if err != nil {
		e.metrics.Inc(metrics.StoreError)
		return nil, err
	}
	return flags, nil
}

// Grant adds flags to a caller.
func (e *Engine) Grant(ctx context.Context, tenantID, userID string, flags ...string) error {
	if e == nil {
		return ErrEngineNotInitialized
	}
	return e.recordWrite(ctx, tenantID, userID, "grant", flags, e.store.Grant(ctx, tenantID, userID, flags...))
}

// Revoke removes flags from a caller.
func (e *Engine) Revoke(ctx context.Context, tenantID, userID string, flags ...string) error {
	if e == nil {
		return ErrEngineNotInitialized
	}
	return e.recordWrite(ctx, tenantID, userID, "revoke", flags, e.store.Revoke(ctx, tenantID, userID, flags...))
}

// SetFlags replaces every flag held by a caller.
func (e *Engine) SetFlags(ctx context.Context, tenantID, userID string, flags ...string) error {
	if e == nil {
		return ErrEngineNotInitialized
	}
	return e.recordWrite(ctx, tenantID, userID, "replace", flags, e.store.Replace(ctx, tenantID, userID, flags...))
}

// AssignRoles replaces a caller's flags with the union of the named roles.
func (e *Engine) AssignRoles(ctx context.Context, tenantID, userID string, roles ...string) error {
	if e == nil {
		return ErrEngineNotInitialized
	}
	mask, err := e.roles.Mask(roles...)
	if err != nil {
		return err
	}
	return e.SetFlags(ctx, tenantID, userID, mask.Names()...)
}

func (e *Engine) recordWrite(ctx context.Context, tenantID, userID, op string, flags []string, err error) error {
	ctx = WithCaller(ctx, tenantID, userID)
	if err != nil {
		e.metrics.Inc(metrics.StoreError)
		e.log.WithError(err).WithField("op", op).Warn("flag store write failed")
	} else {
		e.metrics.Inc(metrics.StoreWrite)
	}
	e.emitAudit(ctx, auditEventFlagsChanged, err == nil, err, func() map[string]string {
		return map[string]string{
			"op":    op,
			"flags": namesString(flags),
		}
	})
	return err
}
