package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	launcher "github.com/toxikkmodding/toxikk-launcher"
	"github.com/toxikkmodding/toxikk-launcher/logging"
	"github.com/toxikkmodding/toxikk-launcher/ratelimit"
)

// Servers is the part of *launcher.Launcher the API drives
type Servers interface {
	Profiles(ctx context.Context) []launcher.Profile
	Profile(ctx context.Context, id string) (launcher.Profile, error)
	StartServer(ctx context.Context, id string) error
	StopServer(ctx context.Context, id string) error
	RestartServer(ctx context.Context, id string) error
	Generate(id string) (*launcher.Generated, error)
}

// Server represents the HTTP API server
type Server struct {
	httpServer *http.Server
	servers    Servers
	auth       *Authenticator
	limits     *ratelimit.Manager
	logger     *logging.Logger
}

// Config holds server configuration
type Config struct {
	ListenAddr string             // Address to listen on (e.g., "127.0.0.1:7780")
	Servers    Servers            // Launcher the API controls
	SigningKey []byte             // HS256 key that bearer tokens must be signed with
	RateLimits *ratelimit.Manager // API rate limits (optional)
	Logger     *logging.Logger    // Logger (optional)
}

// NewServer creates a new HTTP API server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Servers == nil {
		return nil, errors.New("httpserver: no launcher configured")
	}
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("httpserver: a signing key is required")
	}
	if cfg.RateLimits == nil {
		cfg.RateLimits = ratelimit.NewManager(0, 0, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	s := &Server{
		servers: cfg.Servers,
		auth:    NewAuthenticator(cfg.SigningKey),
		limits:  cfg.RateLimits,
		logger:  cfg.Logger,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux)

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the server's request handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info(logging.DestinationHTTP, "Starting control API", "address", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(logging.DestinationHTTP, "Shutting down control API")
	s.auth.Close()
	return s.httpServer.Shutdown(ctx)
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}); err != nil {
		s.logger.Error(logging.DestinationHTTP, "Failed to encode error response", "error", err)
	}
}

// writeJSON writes a JSON response
func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error(logging.DestinationHTTP, "Error encoding JSON response", "error", err)
		}
	}
}

// extractBearerToken extracts the bearer token from the Authorization header
func extractBearerToken(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("no authorization header")
	}

	const prefix = "Bearer "
	if len(auth) < len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return "", fmt.Errorf("invalid authorization header format")
	}

	return strings.TrimSpace(auth[len(prefix):]), nil
}
