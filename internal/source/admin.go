package source

import (
	"encoding/json"
	"net/http"

	"tailscale.com/tsweb"
)

// AttachAdminRoutes exposes the source status on the /debug/ mux. The routes
// are meant to be reached over localhost or the tailnet only.
func AttachAdminRoutes(mux *http.ServeMux, src Source) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("source", "reading source status", func(w http.ResponseWriter, r *http.Request) {
		status := struct {
			Source string `json:"source"`
			Stats  *Stats `json:"stats,omitempty"`
		}{Source: src.String()}
		if sr, ok := src.(StatsReporter); ok {
			st := sr.Stats()
			status.Stats = &st
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	})
}
