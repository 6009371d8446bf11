package handler

import "net/http"

// Health reports liveness and whether the catalog is still loading.
func Health(loading func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "loading": loading()})
	}
}
