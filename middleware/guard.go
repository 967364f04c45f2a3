package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/permguard"
	"github.com/MrEthical07/permguard/jwt"
)

type authContextKey struct{}

type authState struct {
	claims *jwt.AccessClaims
	mode   permguard.ValidationMode
}

// ClaimsFromContext returns the claims injected by a guard.
func ClaimsFromContext(ctx context.Context) (*jwt.AccessClaims, bool) {
	st, ok := ctx.Value(authContextKey{}).(authState)
	if !ok {
		return nil, false
	}
	return st.claims, true
}

// Guard rejects requests without a valid bearer token. Flags are sourced
// according to the engine's ValidationMode.
func Guard(engine *permguard.Engine) func(http.Handler) http.Handler {
	if engine == nil {
		return guard(nil, permguard.ModeStrict)
	}
	return guard(engine, engine.Mode())
}

func guard(engine *permguard.Engine, mode permguard.ValidationMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := engine.ParseAccess(token)
			if err != nil {
				engine.Logger().WithError(err).Debug("bearer token rejected")
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authContextKey{}, authState{claims: claims, mode: mode})
			ctx = permguard.WithCaller(ctx, claims.TID, claims.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
