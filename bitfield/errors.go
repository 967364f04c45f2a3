package bitfield

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFlag matches every *InvalidFlagError under errors.Is.
	ErrInvalidFlag = errors.New("invalid flag")
	// ErrNegativeBits is returned when a signed integer below zero is resolved.
	ErrNegativeBits = errors.New("negative bitmask value")
	// ErrUnresolvable is returned for values of a type that cannot be resolved.
	ErrUnresolvable = errors.New("unresolvable bitmask value")
	// ErrInvalidEncoding is returned by DecodeBits for input of the wrong size.
	ErrInvalidEncoding = errors.New("invalid bitmask encoding")
	// ErrTableFrozen is returned by Register once the table has been frozen.
	ErrTableFrozen = errors.New("table frozen")
	// ErrTableFull is returned by Register when all 64 bits are assigned.
	ErrTableFull = errors.New("flag limit exceeded")
)

// InvalidFlagError reports a flag name that is not a key of the active table.
type InvalidFlagError struct {
	Table string
	Flag  string
}

func (e *InvalidFlagError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("invalid flag: %s", e.Flag)
	}
	return fmt.Sprintf("invalid flag: %s (table %s)", e.Flag, e.Table)
}

// Is lets errors.Is(err, ErrInvalidFlag) match any InvalidFlagError.
func (e *InvalidFlagError) Is(target error) bool {
	return target == ErrInvalidFlag
}
