package bitfield

import (
	"fmt"
	"reflect"
)

// Resolve reduces a resolvable value to a single mask:
//
//   - integers are used unchanged (negative values fail with ErrNegativeBits)
//   - strings are looked up in the table and fail with *InvalidFlagError if absent
//   - BitField values contribute their current value
//   - slices and arrays resolve element-wise and are OR-reduced; empty is 0
//   - nil is 0
//
// Resolve is safe on a nil *Table, which knows no names. Slices nested more
// than maxNesting levels deep fail with ErrUnresolvable.
func (t *Table) Resolve(v any) (Bits, error) {
	return t.resolve(v, 0)
}

const maxNesting = 32

func (t *Table) resolve(v any, depth int) (Bits, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case Bits:
		return x, nil
	case uint64:
		return Bits(x), nil
	case uint:
		return Bits(x), nil
	case uint32:
		return Bits(x), nil
	case uint16:
		return Bits(x), nil
	case uint8:
		return Bits(x), nil
	case int:
		return signed(int64(x))
	case int64:
		return signed(x)
	case int32:
		return signed(int64(x))
	case int16:
		return signed(int64(x))
	case int8:
		return signed(int64(x))
	case string:
		bit, ok := t.Lookup(x)
		if !ok {
			return 0, &InvalidFlagError{Table: t.Label(), Flag: x}
		}
		return bit, nil
	case *BitField:
		if x == nil {
			return 0, nil
		}
		return x.bits, nil
	case BitField:
		return x.bits, nil
	case []string:
		var out Bits
		for _, name := range x {
			bit, err := t.Resolve(name)
			if err != nil {
				return 0, err
			}
			out |= bit
		}
		return out, nil
	case []Bits:
		var out Bits
		for _, bit := range x {
			out |= bit
		}
		return out, nil
	case []any:
		if depth >= maxNesting {
			return 0, errTooDeep()
		}
		var out Bits
		for _, elem := range x {
			bit, err := t.resolve(elem, depth+1)
			if err != nil {
				return 0, err
			}
			out |= bit
		}
		return out, nil
	}

	return t.resolveReflect(v, depth)
}

// resolveReflect covers named integer types and slice types the switch above
// does not list, such as []*BitField or a user-defined flag type.
func (t *Table) resolveReflect(v any, depth int) (Bits, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Bits(rv.Uint()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return signed(rv.Int())
	case reflect.String:
		return t.Resolve(rv.String())
	case reflect.Slice, reflect.Array:
		if depth >= maxNesting {
			return 0, errTooDeep()
		}
		var out Bits
		for i := 0; i < rv.Len(); i++ {
			bit, err := t.resolve(rv.Index(i).Interface(), depth+1)
			if err != nil {
				return 0, err
			}
			out |= bit
		}
		return out, nil
	}
	return 0, fmt.Errorf("%w: %T", ErrUnresolvable, v)
}

func errTooDeep() error {
	return fmt.Errorf("%w: nested deeper than %d levels", ErrUnresolvable, maxNesting)
}

func signed(v int64) (Bits, error) {
	if v < 0 {
		return 0, fmt.Errorf("%w: %d", ErrNegativeBits, v)
	}
	return Bits(v), nil
}
