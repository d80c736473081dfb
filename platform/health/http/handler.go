package http

import (
	"encoding/json"
	"net/http"
)

type response struct {
	Status string `json:"status"`
}

// Handler отвечает на readiness probe.
// nil readiness или readiness() == true дают 200 {"status":"ok"}, иначе 503 {"status":"not ready"}.
func Handler(readiness func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, body := http.StatusOK, response{Status: "ok"}
		if readiness != nil && !readiness() {
			code, body = http.StatusServiceUnavailable, response{Status: "not ready"}
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
