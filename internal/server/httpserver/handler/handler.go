package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/zonemesh-go/internal/core/domain"
	"github.com/yndnr/zonemesh-go/internal/federation/command"
	"github.com/yndnr/zonemesh-go/internal/federation/view"
)

// DefaultMetadataTimeout bounds zone metadata gathering when Config leaves
// it unset.
const DefaultMetadataTimeout = 5 * time.Second

// Controller is the controller API exposed over HTTP.
type Controller interface {
	Deploy(ctx context.Context, zone string, units []command.Unit) (*command.DeploymentCommand, error)
	ZoneMetadata(ctx context.Context, zone string, timeout time.Duration) ([]*command.ZoneMetadataResponse, error)
}

// Deployments reads the controller's deployment store.
type Deployments interface {
	Get(zone string) *command.DeploymentCommand
	Zones() []string
}

// Config wires a Handler to the node.
type Config struct {
	// LocalName is the encoded identity of this runtime.
	LocalName string

	// View returns the current membership view, or nil before joining.
	View func() *view.View

	// Ready reports readiness and a short state label.
	Ready func() (bool, string)

	// Controller and Deployments are set on controller nodes only.
	Controller  Controller
	Deployments Deployments

	MetadataTimeout time.Duration
	Logger          *slog.Logger
}

// Handler routes operations requests.
type Handler struct {
	cfg    Config
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates a new Handler.
func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MetadataTimeout <= 0 {
		cfg.MetadataTimeout = DefaultMetadataTimeout
	}
	if cfg.View == nil {
		cfg.View = func() *view.View { return nil }
	}
	h := &Handler{
		cfg:    cfg,
		logger: cfg.Logger,
		mux:    http.NewServeMux(),
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
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)
	h.mux.HandleFunc("GET /v1/view", h.handleView)

	if h.cfg.Deployments != nil {
		h.mux.HandleFunc("GET /v1/deployments", h.handleListDeployments)
		h.mux.HandleFunc("GET /v1/deployments/{zone}", h.handleGetDeployment)
	}
	if h.cfg.Controller != nil {
		h.mux.HandleFunc("PUT /v1/deployments/{zone}", h.handleDeploy)
		h.mux.HandleFunc("GET /v1/zones/{zone}/metadata", h.handleZoneMetadata)
	}
}

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(w, r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error response with standard envelope format.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	requestID := getRequestID(w, r)
	response := NewErrorResponse(requestID, code, message, details)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// getRequestID returns the client's request id, or the one the RequestID
// middleware put on the response.
func getRequestID(w http.ResponseWriter, r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}
	return w.Header().Get("X-Request-ID")
}

// handleServiceError converts federation errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.IsDomainError(err, "") {
		code := domain.GetErrorCode(err)
		h.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error(), nil)
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "ZM-SYS-5000", "internal server error", nil)
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	case strings.HasSuffix(code, "-5040"):
		return http.StatusGatewayTimeout
	case strings.HasPrefix(code, "ZM-ARG-"), strings.HasSuffix(code, "-4000"):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
