package bitfield

import (
	"strconv"
	"strings"
)

// BitField is a 64-bit permission mask bound to a Table. A BitField is owned by
// whoever built it; it is not safe for concurrent mutation.
type BitField struct {
	table *Table
	bits  Bits
}

// New constructs a BitField with no flag table, so only numeric values,
// other BitFields and slices of those resolve.
func New(initial any) (*BitField, error) {
	var t *Table
	return t.New(initial)
}

// Has reports whether every bit of flag is set. Has(0) is always true.
// It panics with *InvalidFlagError if flag names an unknown flag.
func (b *BitField) Has(flag any) bool {
	f := b.mustResolve(flag)
	return b.Value()&f == f
}

// Any reports whether at least one bit of flag is set. Any(0) is false.
func (b *BitField) Any(flag any) bool {
	return b.Value()&b.mustResolve(flag) != 0
}

// Missing returns the bits of flag that are not set.
func (b *BitField) Missing(flag any) Bits {
	return b.mustResolve(flag) &^ b.Value()
}

// Add sets every bit of each flag. Adding a bit that is already set is a no-op.
// On a nil BitField the flags are still validated but nothing is stored.
func (b *BitField) Add(flags ...any) *BitField {
	for _, flag := range flags {
		f := b.mustResolve(flag)
		if b != nil {
			b.bits |= f
		}
	}
	return b
}

// Remove clears every bit of each flag. Removing an absent bit is a no-op.
func (b *BitField) Remove(flags ...any) *BitField {
	for _, flag := range flags {
		f := b.mustResolve(flag)
		if b != nil {
			b.bits &^= f
		}
	}
	return b
}

// Value returns the mask as a plain number.
func (b *BitField) Value() Bits {
	if b == nil {
		return 0
	}
	return b.bits
}

// Table returns the table b resolves names against.
func (b *BitField) Table() *Table {
	if b == nil {
		return nil
	}
	return b.table
}

// Names returns the names of the set bits, ordered by bit position.
func (b *BitField) Names() []string {
	return b.Table().NamesOf(b.Value())
}

// Clone returns an independent copy bound to the same table.
func (b *BitField) Clone() *BitField {
	return &BitField{table: b.Table(), bits: b.Value()}
}

// Equal reports whether both masks hold the same bits.
func (b *BitField) Equal(other *BitField) bool {
	return b.Value() == other.Value()
}

func (b *BitField) String() string {
	var sb strings.Builder
	sb.WriteString(b.Table().Label())
	sb.WriteByte('[')
	names := b.Names()
	sb.WriteString(strings.Join(names, "|"))

	unnamed := b.Value() &^ b.Table().All()
	if unnamed != 0 {
		if len(names) > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("0x")
		sb.WriteString(strconv.FormatUint(uint64(unnamed), 16))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (b *BitField) mustResolve(flag any) Bits {
	f, err := b.Table().Resolve(flag)
	if err != nil {
		panic(err)
	}
	return f
}
