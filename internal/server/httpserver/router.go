package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/yndnr/zonemesh-go/internal/server/httpserver/handler"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Handler carries the node state served under /health, /ready and /v1.
	Handler handler.Config

	// Metrics serves /metrics; nil leaves the route unregistered.
	Metrics http.Handler

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hcfg := cfg.Handler
	if hcfg.Logger == nil {
		hcfg.Logger = logger
	}
	h := handler.New(hcfg)

	// Order: RequestID -> Recover -> AccessLog -> Handler
	wrap := func(next http.Handler) http.Handler {
		return Chain(next, RequestID(), Recover(logger), AccessLog(logger))
	}

	mux := http.NewServeMux()
	mux.Handle("/", wrap(h))
	if cfg.Metrics != nil {
		mux.Handle("GET /metrics", wrap(cfg.Metrics))
	}
	return mux
}
