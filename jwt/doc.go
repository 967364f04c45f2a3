// Package jwt issues and verifies access tokens carrying a caller's identity
// and an encoded permission mask.
//
// # Claims
//
// Tokens carry "uid", "tid", an 8-byte big-endian "mask" produced by
// bitfield.EncodeBits, and the flag store version "pv" the mask was read at.
//
// # What this package must NOT do
//
//   - Decide whether a mask grants a permission.
//   - Accept tokens signed with an algorithm other than the configured one.
package jwt
