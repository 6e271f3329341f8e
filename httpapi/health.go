package httpapi

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency checked by /healthz.
type Pinger func(ctx context.Context) error

// HealthHandler serves /healthz with one check per named dependency.
type HealthHandler struct {
	checks map[string]Pinger
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Message string            `json:"message,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allOK := true
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			checks[name] = "down: " + err.Error()
			allOK = false
			continue
		}
		checks[name] = "ok"
	}

	if !allOK {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:  "unhealthy",
			Checks:  checks,
			Message: "one or more checks failed",
		})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Checks: checks})
}
