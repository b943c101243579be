// Package handler provides HTTP request handlers for LexMesh.
//
// This package implements the HTTP API endpoints for encryption status
// reporting, key activation, and key cookie minting.
//
// @req RQ-0301
// @design DS-0301
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/lexmesh-go/internal/cluster"
	"github.com/yndnr/lexmesh-go/internal/core/domain"
	"github.com/yndnr/lexmesh-go/internal/telemetry/metric"
)

// DefaultDistribTimeout bounds distributed status collection when the
// configuration does not specify a budget.
const DefaultDistribTimeout = 10 * time.Second

// Config holds the dependencies and tunables for the Handler.
//
// @design DS-0301
type Config struct {
	// Status answers local encryption state queries.
	Status StatusSource

	// Keys mints key cookies.
	Keys CookieMinter

	// Activator applies key activations to cores.
	Activator KeyActivator

	// Registry lists cluster members for distributed status collection.
	// Nil means single-node operation.
	Registry cluster.Registry

	// Metrics records request counters and durations. Optional.
	Metrics *metric.Registry

	Logger *slog.Logger

	// DistribTimeout is the time budget for collecting replica answers.
	DistribTimeout time.Duration

	// Policy resolves per-node states into one overall state.
	// Defaults to SeverityPolicy.
	Policy AggregatePolicy

	// Now and IsTimeout are injectable for tests. Now defaults to
	// time.Now; IsTimeout defaults to a wall-clock deadline check.
	Now       func() time.Time
	IsTimeout func(deadline time.Time) bool

	// Client issues sub-requests to other replicas.
	Client *http.Client

	// RemoteScheme is the URL scheme for replica sub-requests, "http"
	// or "https". Defaults to "http"; must be "https" when the admin
	// API itself is served over TLS, or every fan-out fails the
	// handshake.
	RemoteScheme string
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
//
// @design DS-0301
type Handler struct {
	status    StatusSource
	keys      CookieMinter
	activator KeyActivator
	registry  cluster.Registry
	metrics   *metric.Registry
	logger    *slog.Logger
	timeout   time.Duration
	policy    AggregatePolicy
	now       func() time.Time
	isTimeout func(deadline time.Time) bool
	client    *http.Client
	scheme    string
	mux       *http.ServeMux
}

// New creates a new Handler with the given configuration.
//
// @design DS-0301
func New(cfg Config) *Handler {
	h := &Handler{
		status:    cfg.Status,
		keys:      cfg.Keys,
		activator: cfg.Activator,
		registry:  cfg.Registry,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		timeout:   cfg.DistribTimeout,
		policy:    cfg.Policy,
		now:       cfg.Now,
		isTimeout: cfg.IsTimeout,
		client:    cfg.Client,
		scheme:    cfg.RemoteScheme,
		mux:       http.NewServeMux(),
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.timeout <= 0 {
		h.timeout = DefaultDistribTimeout
	}
	if h.policy == nil {
		h.policy = SeverityPolicy{}
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.isTimeout == nil {
		h.isTimeout = func(deadline time.Time) bool {
			return !time.Now().Before(deadline)
		}
	}
	if h.client == nil {
		h.client = &http.Client{Timeout: h.timeout}
	}
	if h.scheme == "" {
		h.scheme = "http"
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// registerRoutes registers all HTTP routes.
func (h *Handler) registerRoutes() {
	// Health endpoints
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Encryption status and key activation
	h.mux.HandleFunc("GET /admin/v1/encryption/{core}/status", h.handleEncryptionStatus)
	h.mux.HandleFunc("POST /admin/v1/encryption/{core}/keys/{key_ref}/activate", h.handleActivateKey)

	// Key cookie minting
	h.mux.HandleFunc("POST /admin/v1/keys/{key_id}/cookie", h.handleKeyCookie)
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID extracts request ID from context or header.
func getRequestID(r *http.Request) string {
	// Try to get from header first (set by middleware)
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return ""
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		// Extract error details
		code := domain.GetErrorCode(err)
		status := errorCodeToHTTPStatus(code)
		h.writeError(w, r, status, code, err.Error(), nil)
		return
	}

	// Generic internal error
	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "LM-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"), strings.HasSuffix(code, "-4041"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4090"), strings.HasSuffix(code, "-4091"):
		return http.StatusConflict
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasSuffix(code, "-4000"), strings.HasSuffix(code, "-4001"), strings.HasSuffix(code, "-4002"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-4010"), strings.HasSuffix(code, "-4011"), strings.HasSuffix(code, "-4012"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4030"), strings.HasSuffix(code, "-4031"):
		return http.StatusForbidden
	case strings.HasPrefix(code, "LM-SYS-5"), strings.HasPrefix(code, "LM-CORE-5"):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
