package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/lexmesh-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler serves the API endpoints.
	Handler *handler.Handler

	// Metrics serves GET /metrics in Prometheus exposition format.
	// Nil disables the endpoint.
	Metrics http.Handler

	// Logger for request logging.
	Logger *slog.Logger

	// AdminAllowList is the IP/CIDR allowlist for admin API (empty = no restriction).
	AdminAllowList []string

	// CORSAllowedOrigins is the list of allowed CORS origins (empty = allow all).
	CORSAllowedOrigins []string

	// GlobalRateLimit is the global rate limit per IP (requests/second).
	GlobalRateLimit int

	// EnableAudit enables audit logging for all requests.
	EnableAudit bool
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
//
// @design DS-0301, DS-0302
func NewRouter(cfg *RouterConfig) http.Handler {
	h := cfg.Handler

	mux := http.NewServeMux()

	// Health endpoints get the minimal chain so a wedged rate limiter
	// or ACL cannot hide liveness.
	healthChain := func(next http.Handler) http.Handler {
		return Chain(next, RequestID(), Recover(cfg.Logger))
	}
	mux.Handle("GET /health", healthChain(h))
	mux.Handle("GET /ready", healthChain(h))

	// Metrics endpoint
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", Chain(cfg.Metrics,
			RequestID(),
			Recover(cfg.Logger),
		))
	}

	// Admin API endpoints: full middleware chain plus optional network ACL.
	adminMiddlewares := []Middleware{
		RequestID(),
		Recover(cfg.Logger),
	}

	if len(cfg.CORSAllowedOrigins) > 0 {
		adminMiddlewares = append(adminMiddlewares, CORS(cfg.CORSAllowedOrigins))
	}

	if len(cfg.AdminAllowList) > 0 {
		adminMiddlewares = append(adminMiddlewares, NetworkACL(&NetworkACLConfig{
			AllowList: cfg.AdminAllowList,
			Logger:    cfg.Logger,
		}))
	}

	if cfg.GlobalRateLimit > 0 {
		adminMiddlewares = append(adminMiddlewares, RateLimit(cfg.GlobalRateLimit))
	}

	if cfg.EnableAudit {
		adminMiddlewares = append(adminMiddlewares, Audit(cfg.Logger))
	}

	adminHandler := Chain(h, adminMiddlewares...)

	// Encryption status and key activation
	mux.Handle("GET /admin/v1/encryption/{core}/status", adminHandler)
	mux.Handle("POST /admin/v1/encryption/{core}/keys/{key_ref}/activate", adminHandler)

	// Key cookie minting
	mux.Handle("POST /admin/v1/keys/{key_id}/cookie", adminHandler)

	return mux
}

// DefaultRouterConfig returns default router configuration.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		GlobalRateLimit: 1000, // 1000 requests/second per IP
		EnableAudit:     true,
	}
}
