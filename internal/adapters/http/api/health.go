package api

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/perfboard/pkg/metrics"
)

type healthResponse struct {
	Status string `json:"status"`
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{Status: "ok"})
}

// handleStats handles GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.GetStats(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, st)
}

// metricsHandler serves the service's own registry, without Go runtime collectors.
func metricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
