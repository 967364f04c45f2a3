package permguard

import "errors"

var (
	// ErrBuilderUsed is returned by a second call to Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrRedisRequired is returned by Build without a Redis client.
	ErrRedisRequired = errors.New("redis client required")
	// ErrPermissionsRequired is returned by Build without a permission table.
	ErrPermissionsRequired = errors.New("permissions must be provided")
	// ErrEngineNotInitialized is returned by methods called on a nil engine.
	ErrEngineNotInitialized = errors.New("engine not initialized")
	// ErrMissingCaller is returned when a request carries no caller identity.
	ErrMissingCaller = errors.New("caller identity missing")
)
