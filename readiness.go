package fuse

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// ReadinessHandler serves reg's readiness as a JSON [ReadinessStatus]:
// 200 while every critical policy is healthy, 503 otherwise. Wire it to a
// /readyz route or a load balancer health check.
func ReadinessHandler(reg *Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		status := reg.CheckReadiness()

		w.Header().Set("Content-Type", "application/json")

		code := http.StatusOK
		if !status.Ready {
			code = http.StatusServiceUnavailable
		}

		w.WriteHeader(code)

		//nolint:errcheck // nothing to do if the client went away
		_ = json.NewEncoder(w).Encode(status)
	})
}
