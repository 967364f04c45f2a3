// Package middleware adapts permguard to net/http.
//
// # Guards
//
//   - [Guard] verifies the bearer token using the engine's validation mode.
//   - [RequireStrict] forces flags to be read from the store.
//   - [RequireJWTOnly] trusts the mask embedded in the token, skipping Redis.
//
// Each guard reads the Authorization header, calls Engine.ParseAccess, and
// injects the claims into the request context.
//
// # Procedures
//
// [Serve] runs a procedure chain for a request and writes a JSON response.
// [RequireAuthenticated] is the base stage permission checks are layered on.
//
// # What this package must NOT do
//
//   - Sign tokens (delegates to Engine).
//   - Decide permissions itself (delegates to the permission stage).
package middleware
