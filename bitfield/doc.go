// Package bitfield provides a 64-bit permission bitmask bound to an explicit
// name→bit table.
//
// # Resolution
//
// Every operation accepts a resolvable value: an integer, a flag name, another
// [BitField], or a slice of any of these nested to any depth. [Table.Resolve] is
// the single place where such values are interpreted; [BitField.Has],
// [BitField.Add] and [BitField.Remove] all route through it.
//
// # Tables
//
// A [Table] stands in for a concrete permission set. Each name maps to exactly one
// bit. Tables are built once with [NewTable] (or [MustTable] for package-level
// declarations) and are read-only afterwards. A nil *Table behaves as an empty set
// of names: numeric values still resolve, names never do.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import procedure, permission, or any transport package.
package bitfield
