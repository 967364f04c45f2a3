// Package permission wraps an authenticated [procedure.Builder] with a
// permission check.
//
// # Flow
//
// For every request the composed stage:
//
//  1. fetches the caller's flag names through [Context.UserPermissions]
//  2. builds a mask with the table from [Context.PermissionSet]
//  3. tests the required permission with [bitfield.BitField.Has]
//  4. rejects with a [procedure.CodeUnauthorized] error, or calls the next stage
//
// [Authorize] performs steps 1–3 and returns a [Decision] value, for callers that
// want to branch on the outcome without going through a procedure chain.
//
// # Architecture boundaries
//
// The stage trusts the base builder to have authenticated the caller. It keeps no
// state between requests; the only I/O is whatever the Context accessor performs.
//
// # What this package must NOT do
//
//   - Verify identity or parse tokens.
//   - Cache, wrap, or retry errors returned by the Context accessor.
//   - Turn an unknown flag name into a denial; that is a configuration defect.
package permission
