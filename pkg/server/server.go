// Package server exposes the cache-aside resolver over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wealthdesk/market-proxy/pkg/logging"
	"github.com/wealthdesk/market-proxy/pkg/marketdata"
	"github.com/wealthdesk/market-proxy/pkg/metrics"
	"github.com/wealthdesk/market-proxy/pkg/resolver"
	"github.com/wealthdesk/market-proxy/pkg/upstream"
)

// corsHeaders are attached to every response, preflight included.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
}

// errorResponse is the JSON error body.
type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode int    `json:"errorCode,omitempty"`
}

// Server routes market-data requests to the resolver.
type Server struct {
	resolver *resolver.Resolver
	router   chi.Router
	logger   zerolog.Logger
}

// New creates the HTTP server over the given resolver.
func New(res *resolver.Resolver) *Server {
	s := &Server{
		resolver: res,
		logger:   logging.NewLogger("server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Post("/market-data", s.handleMarketData)
	r.Options("/market-data", s.handlePreflight)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// cors attaches permissive CORS headers to every response.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	var req marketdata.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	if req.Endpoint == "" {
		s.writeError(w, http.StatusBadRequest, errorResponse{Error: "Endpoint is required"})
		return
	}

	dt, err := marketdata.ParseDataType(req.Endpoint)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	payload, err := s.resolver.Resolve(r.Context(), dt, req.Params())
	if err != nil {
		status, body := mapError(err)
		s.logger.Warn().
			Err(err).
			Str("endpoint", req.Endpoint).
			Str("symbol", req.Symbol).
			Int("status", status).
			Msg("Resolution failed")
		s.writeError(w, status, body)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// mapError translates resolver failures into an HTTP status and body.
// Validation failures are the caller's fault; upstream errors keep their
// own status code; everything else is a 500.
func mapError(err error) (int, errorResponse) {
	var valErr *marketdata.ValidationError
	if errors.As(err, &valErr) {
		return http.StatusBadRequest, errorResponse{Error: valErr.Error()}
	}

	var upErr *upstream.Error
	if errors.As(err, &upErr) && upErr.StatusCode > 0 {
		return upErr.StatusCode, errorResponse{
			Error:     err.Error(),
			ErrorCode: upErr.StatusCode,
		}
	}

	return http.StatusInternalServerError, errorResponse{Error: err.Error()}
}

func (s *Server) writeError(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
