/*
Copyright 2026 The MessageQueue Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package httpapi is the thin request/response mapping spec.md §1 scopes
// out of the core: routing, JSON encode/decode, and error-to-status-code
// translation (§6/§7). The teacher has no REST surface of its own (it is a
// Kubernetes controller plus a custom-metrics gRPC adapter), so routing
// here uses the stdlib's method-and-wildcard-aware net/http.ServeMux
// (Go 1.22+) rather than reaching for a third-party router the teacher
// never imports — see DESIGN.md.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/KyleGonzalez/MessageQueue/internal/auth"
	"github.com/KyleGonzalez/MessageQueue/internal/config"
	"github.com/KyleGonzalez/MessageQueue/internal/queue"
	"github.com/KyleGonzalez/MessageQueue/internal/restriction"
)

// Server wires the multi-queue core, restriction registry, token provider,
// and access-control filter to the REST surface in spec.md §6.
type Server struct {
	core        *queue.Core
	restriction *restriction.Registry
	tokens      *auth.TokenProvider
	filter      *auth.Filter
	cfg         config.Config
	logger      logr.Logger

	requestsTotal *prometheus.CounterVec
}

// NewServer builds a Server. reg may be nil to skip metrics registration.
func NewServer(core *queue.Core, restrictions *restriction.Registry, tokens *auth.TokenProvider, filter *auth.Filter, cfg config.Config, logger logr.Logger, reg prometheus.Registerer) *Server {
	s := &Server{
		core:        core,
		restriction: restrictions,
		tokens:      tokens,
		filter:      filter,
		cfg:         cfg,
		logger:      logger,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "messagequeue_http_requests_total",
			Help: "Total HTTP requests handled, by route and status class.",
		}, []string{"route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(s.requestsTotal)
	}
	return s
}

// Routes builds the http.Handler serving every endpoint in spec.md §6,
// wrapped in the access-control filter.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /message", s.withMetrics("POST /message", s.handleAddMessage))
	mux.HandleFunc("GET /message/{uuid}", s.withMetrics("GET /message/{uuid}", s.handleGetMessage))
	mux.HandleFunc("DELETE /message/{uuid}", s.withMetrics("DELETE /message/{uuid}", s.handleRemoveMessage))
	mux.HandleFunc("PUT /message/{uuid}", s.withMetrics("PUT /message/{uuid}", s.handlePersistMessage))

	mux.HandleFunc("GET /queue/{subQueue}", s.withMetrics("GET /queue/{subQueue}", s.handleGetForSubQueue))
	mux.HandleFunc("GET /queue/{subQueue}/next", s.withMetrics("GET /queue/{subQueue}/next", s.handlePoll))
	mux.HandleFunc("GET /queue/{subQueue}/peek", s.withMetrics("GET /queue/{subQueue}/peek", s.handlePeek))
	mux.HandleFunc("DELETE /queue/{subQueue}", s.withMetrics("DELETE /queue/{subQueue}", s.handleClearSubQueue))
	mux.HandleFunc("POST /queue/{subQueue}/assign", s.withMetrics("POST /queue/{subQueue}/assign", s.handleAssign))
	mux.HandleFunc("POST /queue/{subQueue}/release", s.withMetrics("POST /queue/{subQueue}/release", s.handleRelease))

	mux.HandleFunc("GET /keys", s.withMetrics("GET /keys", s.handleKeys))
	mux.HandleFunc("GET /owners", s.withMetrics("GET /owners", s.handleOwnersMap))
	mux.HandleFunc("GET /health", s.withMetrics("GET /health", s.handleHealth))
	mux.HandleFunc("GET /settings", s.withMetrics("GET /settings", s.handleSettings))

	mux.HandleFunc("POST /auth/{subQueue}", s.withMetrics("POST /auth/{subQueue}", s.handleIssueToken))
	mux.HandleFunc("PUT /restriction/{subQueue}", s.withMetrics("PUT /restriction/{subQueue}", s.handleAddRestriction))
	mux.HandleFunc("DELETE /restriction/{subQueue}", s.withMetrics("DELETE /restriction/{subQueue}", s.handleRemoveRestriction))
	mux.HandleFunc("GET /restriction", s.withMetrics("GET /restriction", s.handleListRestrictions))

	mux.Handle("/metrics", promhttp.Handler())

	return s.filter.Middleware(mux)
}

// withMetrics bounds every request with requestTimeout (spec.md §5: "every
// operation accepts a deadline"), records it under route/status-class, and
// logs completion with the route, sub-queue (when the route names one),
// and resulting status, the teacher's .WithValues(...) convention applied
// to request handling.
func (s *Server) withMetrics(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r.WithContext(ctx))
		s.requestsTotal.WithLabelValues(route, statusClass(rec.status)).Inc()

		logger := s.logger.WithValues("route", route, "status", rec.status)
		if subQueue := r.PathValue("subQueue"); subQueue != "" {
			logger = logger.WithValues("subQueue", subQueue)
		}
		if uuid := r.PathValue("uuid"); uuid != "" {
			logger = logger.WithValues("uuid", uuid)
		}
		if rec.status >= 500 {
			logger.Error(fmt.Errorf("handler returned status %d", rec.status), "request failed")
		} else {
			logger.Info("request handled")
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestContext returns r's context; a small seam kept so handlers never
// reach for r.Context() directly and forget a shared deadline in future
// revisions.
func requestContext(r *http.Request) context.Context {
	return r.Context()
}

const requestTimeout = 30 * time.Second
