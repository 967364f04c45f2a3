// Package store persists the flag names granted to each caller in Redis.
//
// # Data model
//
// Every caller owns one Redis set keyed "{prefix}:perm:{tenant}:{user}" whose
// members are flag names. A companion counter "{prefix}:permv:{tenant}:{user}"
// is incremented on every write so cached masks (for example the mask embedded
// in an access token) can be compared against the current version.
//
// # Architecture boundaries
//
// The store owns persistence only. It does NOT resolve names to bits or make
// authorization decisions; callers hand the returned names to a
// [bitfield.Table].
//
// # What this package must NOT do
//
//   - Import permguard or the middleware package.
//   - Accept names rejected by the configured table.
package store
