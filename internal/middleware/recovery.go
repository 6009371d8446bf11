package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 JSON response and logs the stack.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				var stack [4096]byte
				n := runtime.Stack(stack[:], false)

				log.Error().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("panic", fmt.Sprintf("%v", rec)).
					Str("stack", string(stack[:n])).
					Msg("panic recovered")

				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
