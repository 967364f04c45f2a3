package permission

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/MrEthical07/permguard/bitfield"
)

var (
	// ErrRolesFrozen is returned by Define after Freeze.
	ErrRolesFrozen = errors.New("role set frozen")
	// ErrUnknownRole is returned when a role name has not been defined.
	ErrUnknownRole = errors.New("unknown role")
)

// Roles maps role names to bundles of flags from one table.
//
// Roles are configured during initialization and then frozen; lookups are safe
// for concurrent use.
type Roles struct {
	table *bitfield.Table

	mu     sync.RWMutex
	roles  map[string]bitfield.Bits
	frozen bool
}

// NewRoles returns an empty role set resolving flags against table.
func NewRoles(table *bitfield.Table) *Roles {
	return &Roles{
		table: table,
		roles: make(map[string]bitfield.Bits),
	}
}

// Define registers role with the given flags, which may be any value the table
// can resolve.
func (r *Roles) Define(role string, flags any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRolesFrozen
	}
	if role == "" {
		return errors.New("role name empty")
	}
	if _, exists := r.roles[role]; exists {
		return fmt.Errorf("role %q already defined", role)
	}

	bits, err := r.table.Resolve(flags)
	if err != nil {
		return fmt.Errorf("role %q: %w", role, err)
	}
	r.roles[role] = bits
	return nil
}

// Freeze prevents further definitions.
func (r *Roles) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Mask returns the union of the flags of every named role.
func (r *Roles) Mask(roles ...string) (*bitfield.BitField, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out, _ := r.table.New(0)
	for _, role := range roles {
		bits, ok := r.roles[role]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
		}
		out.Add(bits)
	}
	return out, nil
}

// Flags returns the flag names granted by role.
func (r *Roles) Flags(role string) ([]string, error) {
	mask, err := r.Mask(role)
	if err != nil {
		return nil, err
	}
	return mask.Names(), nil
}

// Names returns the defined role names in lexical order.
func (r *Roles) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.roles))
	for name := range r.roles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Table returns the table roles are resolved against.
func (r *Roles) Table() *bitfield.Table {
	return r.table
}
