package permission

import (
	"context"
	"time"

	"github.com/MrEthical07/permguard/bitfield"
	"github.com/MrEthical07/permguard/procedure"
)

// MessageMissingPermission is the message carried by a denial.
const MessageMissingPermission = "Missing required permission"

// Context is the per-request capability set the stage depends on.
type Context interface {
	// UserPermissions returns the flag names held by the authenticated caller.
	// It may perform I/O; errors are propagated unchanged.
	UserPermissions(ctx context.Context) ([]string, error)
	// PermissionSet returns the table the caller's flags and the required
	// permission are resolved against.
	PermissionSet() *bitfield.Table
}

// Decision is the outcome of a single permission check.
type Decision struct {
	Allowed  bool
	Required bitfield.Bits
	Granted  bitfield.Bits
	// Missing names the required flags the caller lacks. Required bits without
	// a name in the table are not listed.
	Missing []string
}

// Observer is notified after every check made by a protected stage. err is
// non-nil when the check could not be completed.
type Observer interface {
	ObservePermission(ctx context.Context, decision Decision, err error, elapsed time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, decision Decision, err error, elapsed time.Duration)

// ObservePermission calls f.
func (f ObserverFunc) ObservePermission(ctx context.Context, decision Decision, err error, elapsed time.Duration) {
	f(ctx, decision, err, elapsed)
}

// Option configures CreatePermissionProtectedProcedure.
type Option func(*options)

type options struct {
	observers []Observer
}

// WithObserver registers o to be told about every check.
func WithObserver(o Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observers = append(opts.observers, o)
		}
	}
}

// Authorize fetches the caller's flags from c and tests them against required.
// A denial is reported as Decision.Allowed == false with a nil error; errors
// are reserved for a failing accessor (returned unchanged) and for unknown
// flag names (*bitfield.InvalidFlagError).
func Authorize(ctx context.Context, c Context, required any) (Decision, error) {
	names, err := c.UserPermissions(ctx)
	if err != nil {
		return Decision{}, err
	}

	table := c.PermissionSet()
	granted, err := table.New(names)
	if err != nil {
		return Decision{}, err
	}
	want, err := table.Resolve(required)
	if err != nil {
		return Decision{Granted: granted.Value()}, err
	}

	d := Decision{
		Allowed:  granted.Has(want),
		Required: want,
		Granted:  granted.Value(),
	}
	if !d.Allowed {
		d.Missing = table.NamesOf(granted.Missing(want))
	}
	return d, nil
}

// CreatePermissionProtectedProcedure returns base extended with a stage that
// rejects callers lacking every bit of required. base must already enforce
// authentication.
//
// On denial the stage returns a *procedure.Error with CodeUnauthorized and
// MessageMissingPermission and does not call the next stage. Otherwise the next
// stage's result is returned unchanged.
func CreatePermissionProtectedProcedure[C Context](base procedure.Builder[C], required any, opts ...Option) procedure.Builder[C] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return base.Use(func(ctx context.Context, c C, next procedure.Next[C]) (any, error) {
		start := time.Now()
		decision, err := Authorize(ctx, c, required)
		o.notify(ctx, decision, err, time.Since(start))

		if err != nil {
			return nil, err
		}
		if !decision.Allowed {
			return nil, procedure.NewError(procedure.CodeUnauthorized, MessageMissingPermission)
		}
		return next(ctx, c)
	})
}

func (o *options) notify(ctx context.Context, d Decision, err error, elapsed time.Duration) {
	for _, obs := range o.observers {
		obs.ObservePermission(ctx, d, err, elapsed)
	}
}
