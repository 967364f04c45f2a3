package middleware

import (
	"net/http"

	"github.com/MrEthical07/permguard"
)

// RequireStrict is Guard with flags always read from the store.
func RequireStrict(engine *permguard.Engine) func(http.Handler) http.Handler {
	return guard(engine, permguard.ModeStrict)
}
