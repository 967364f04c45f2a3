package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/MrEthical07/permguard"
	"github.com/MrEthical07/permguard/bitfield"
	"github.com/MrEthical07/permguard/jwt"
)

// Caller is the authenticated principal of one HTTP request. It implements
// permission.Context.
type Caller struct {
	Claims *jwt.AccessClaims
	Mode   permguard.ValidationMode

	engine *permguard.Engine
}

// UserPermissions returns the caller's flag names. In ModeStrict they are
// read from the store; in ModeJWTOnly they are decoded from the token mask.
func (c *Caller) UserPermissions(ctx context.Context) ([]string, error) {
	if c.Mode == permguard.ModeJWTOnly {
		return c.maskFlags()
	}
	return c.engine.UserFlags(ctx, c.Claims.TID, c.Claims.UID)
}

// PermissionSet returns the engine's table.
func (c *Caller) PermissionSet() *bitfield.Table {
	return c.engine.Table()
}

func (c *Caller) maskFlags() ([]string, error) {
	bits, err := c.Claims.Bits()
	if err != nil {
		return nil, err
	}
	table := c.engine.Table()
	if unknown := bits &^ table.All(); unknown != 0 {
		return nil, &bitfield.InvalidFlagError{Table: table.Label(), Flag: "0x" + strconv.FormatUint(uint64(unknown), 16)}
	}
	return table.NamesOf(bits), nil
}

// BindCaller returns a bind function for Serve. Requests that did not pass a
// guard bind to a nil *Caller, which RequireAuthenticated rejects.
func BindCaller(engine *permguard.Engine) func(*http.Request) (*Caller, error) {
	return func(r *http.Request) (*Caller, error) {
		st, ok := r.Context().Value(authContextKey{}).(authState)
		if !ok {
			return nil, nil
		}
		return &Caller{Claims: st.claims, Mode: st.mode, engine: engine}, nil
	}
}
