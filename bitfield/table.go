package bitfield

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"
)

// Bits is a raw 64-bit permission mask.
type Bits uint64

// DefaultBit is the value of an empty mask.
const DefaultBit Bits = 0

// MaxFlags is the number of distinct flags a Table can hold.
const MaxFlags = 64

// Table maps permission names to single-bit values. It takes the place of a
// concrete permission set: the table a BitField is bound to decides which names
// resolve.
type Table struct {
	name string

	mu         sync.RWMutex
	nameToBits map[string]Bits
	bitsToName map[Bits]string
	all        Bits
	frozen     bool
}

// NewTable builds a frozen table from a fixed name→bit mapping. Every value
// must be a single non-zero bit and no two names may share a bit.
func NewTable(name string, flags map[string]Bits) (*Table, error) {
	t := newTable(name)

	for flag, bit := range flags {
		if flag == "" {
			return nil, errors.New("flag name cannot be empty")
		}
		if bits.OnesCount64(uint64(bit)) != 1 {
			return nil, fmt.Errorf("flag %q: value %#x is not a single bit", flag, uint64(bit))
		}
		if other, exists := t.bitsToName[bit]; exists {
			return nil, fmt.Errorf("flag %q: bit %#x already used by %q", flag, uint64(bit), other)
		}
		t.nameToBits[flag] = bit
		t.bitsToName[bit] = flag
		t.all |= bit
	}

	t.frozen = true
	return t, nil
}

// MustTable is like NewTable but panics on an invalid mapping. It is intended
// for package-level permission set declarations.
func MustTable(name string, flags map[string]Bits) *Table {
	t, err := NewTable(name, flags)
	if err != nil {
		panic("bitfield: " + err.Error())
	}
	return t
}

// NewRegistryTable creates an empty, unfrozen table whose bits are assigned in
// registration order by Register.
func NewRegistryTable(name string) *Table {
	return newTable(name)
}

func newTable(name string) *Table {
	return &Table{
		name:       name,
		nameToBits: make(map[string]Bits),
		bitsToName: make(map[Bits]string),
	}
}

// Register assigns the lowest free bit to the named flag and returns it. Must
// be called before Freeze.
func (t *Table) Register(name string) (Bits, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return 0, ErrTableFrozen
	}
	if name == "" {
		return 0, errors.New("flag name cannot be empty")
	}
	if _, exists := t.nameToBits[name]; exists {
		return 0, fmt.Errorf("flag %q already registered", name)
	}

	free := ^t.all
	if free == 0 {
		return 0, ErrTableFull
	}
	bit := free & -free

	t.nameToBits[name] = bit
	t.bitsToName[bit] = name
	t.all |= bit

	return bit, nil
}

// Freeze prevents further registrations.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Label returns the table's name, used in error messages and String output.
func (t *Table) Label() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Lookup returns the bit for the named flag, or false if the name is unknown.
func (t *Table) Lookup(name string) (Bits, bool) {
	if t == nil {
		return 0, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	bit, ok := t.nameToBits[name]
	return bit, ok
}

// Name returns the flag name for a single bit, or false if unassigned.
func (t *Table) Name(bit Bits) (string, bool) {
	if t == nil {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	name, ok := t.bitsToName[bit]
	return name, ok
}

// Names returns every flag name ordered by bit position.
func (t *Table) Names() []string {
	return t.NamesOf(t.All())
}

// NamesOf returns the names of the set bits of b that the table knows, ordered
// by bit position. Bits without a name are skipped.
func (t *Table) NamesOf(b Bits) []string {
	if t == nil || b == 0 {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, 0, bits.OnesCount64(uint64(b)))
	for rest := b; rest != 0; rest &= rest - 1 {
		bit := rest & -rest
		if name, ok := t.bitsToName[bit]; ok {
			out = append(out, name)
		}
	}
	return out
}

// All returns the OR of every registered bit.
func (t *Table) All() Bits {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.all
}

// Len returns the number of registered flags.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nameToBits)
}

// Flags returns a copy of the name→bit mapping.
func (t *Table) Flags() map[string]Bits {
	if t == nil {
		return map[string]Bits{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]Bits, len(t.nameToBits))
	for k, v := range t.nameToBits {
		out[k] = v
	}
	return out
}

// New constructs a BitField bound to t whose value is Resolve(initial).
func (t *Table) New(initial any) (*BitField, error) {
	b, err := t.Resolve(initial)
	if err != nil {
		return nil, err
	}
	return &BitField{table: t, bits: b}, nil
}

// MustNew is like New but panics with the resolution error.
func (t *Table) MustNew(initial any) *BitField {
	bf, err := t.New(initial)
	if err != nil {
		panic(err)
	}
	return bf
}

// Validate returns an *InvalidFlagError for the first name the table does not
// know, or nil.
func (t *Table) Validate(names ...string) error {
	for _, name := range names {
		if _, ok := t.Lookup(name); !ok {
			return &InvalidFlagError{Table: t.Label(), Flag: name}
		}
	}
	return nil
}
