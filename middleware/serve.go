package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/permguard/procedure"
)

// RequireAuthenticated is the base stage for HTTP procedures. It rejects
// requests that bound no caller.
func RequireAuthenticated() procedure.Builder[*Caller] {
	return procedure.New[*Caller]().Use(func(ctx context.Context, c *Caller, next procedure.Next[*Caller]) (any, error) {
		if c == nil || c.Claims == nil {
			return nil, procedure.NewError(procedure.CodeUnauthorized, "not authenticated")
		}
		return next(ctx, c)
	})
}

type errorBody struct {
	Code    procedure.Code `json:"code"`
	Message string         `json:"message"`
}

// Serve runs h behind builder for each request. bind derives the procedure
// context from the request. Results are written as JSON; a *procedure.Error
// sets the status from its code and any other error becomes a 500.
func Serve[C any](builder procedure.Builder[C], bind func(*http.Request) (C, error), h procedure.Handler[C]) http.Handler {
	handler := builder.Handle(h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := bind(r)
		if err != nil {
			var pe *procedure.Error
			if !errors.As(err, &pe) {
				err = procedure.Wrap(procedure.CodeBadRequest, "invalid request", err)
			}
			writeError(w, err)
			return
		}

		out, err := handler(r.Context(), c)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func writeError(w http.ResponseWriter, err error) {
	var pe *procedure.Error
	if !errors.As(err, &pe) {
		pe = procedure.NewError(procedure.CodeInternal, "internal server error")
	}
	writeJSON(w, procedure.HTTPStatus(pe.Code), errorBody{Code: pe.Code, Message: pe.Message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
