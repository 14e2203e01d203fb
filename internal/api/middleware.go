package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and records it under its route template.
func (s *APIServer) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger.LogRequest(r.Method, r.URL.Path, r.RemoteAddr)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		elapsed := time.Since(start)
		logger.LogResponse(r.Method, route, rec.status, elapsed)
		metrics.Default().ObserveHTTPRequest(r.Method, route, rec.status, elapsed.Seconds())
	})
}
