package middleware

import (
	"net/http"

	"github.com/MrEthical07/permguard"
)

// RequireJWTOnly is Guard with flags decoded from the token mask. Revocations
// take effect only once the token expires.
func RequireJWTOnly(engine *permguard.Engine) func(http.Handler) http.Handler {
	return guard(engine, permguard.ModeJWTOnly)
}
