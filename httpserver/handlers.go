package httpserver

import (
	"errors"
	"net/http"

	launcher "github.com/toxikkmodding/toxikk-launcher"
	"github.com/toxikkmodding/toxikk-launcher/generator"
	"github.com/toxikkmodding/toxikk-launcher/logging"
	"github.com/toxikkmodding/toxikk-launcher/ratelimit"
)

// ServerInfo describes a server profile
type ServerInfo struct {
	ID      string `json:"id"`
	Section string `json:"section"`
	Name    string `json:"name"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
}

// ServerListResponse represents a server listing response
type ServerListResponse struct {
	Servers []ServerInfo `json:"servers"`
}

// ActionResponse reports the state of a server after an action
type ActionResponse struct {
	Action string     `json:"action"`
	Server ServerInfo `json:"server"`
}

// GenerateResponse describes a generated config folder
type GenerateResponse struct {
	ID        string   `json:"id"`
	Section   string   `json:"section"`
	TargetDir string   `json:"target_dir"`
	Map       string   `json:"map,omitempty"`
	Options   string   `json:"options,omitempty"`
	CmdLine   string   `json:"cmdline"`
	Files     []string `json:"files"`
}

func serverInfo(p launcher.Profile) ServerInfo {
	return ServerInfo{ID: p.ID, Section: p.Section, Name: p.Name, Running: p.Running, PID: p.PID}
}

// authenticated wraps h with bearer token verification and per-user rate limiting
func (s *Server) authenticated(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "Authentication failed: "+err.Error())
			return
		}
		user, err := s.auth.Authenticate(token)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "Authentication failed: "+err.Error())
			return
		}
		if err := s.limits.AllowAPI(user); err != nil {
			if ratelimit.IsRateLimitError(err) {
				w.Header().Set("Retry-After", "1")
				s.writeError(w, http.StatusTooManyRequests, err.Error())
				return
			}
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		s.logger.Debug(logging.DestinationHTTP, "API request", "user", user, "method", r.Method, "path", r.URL.Path)
		h(w, r.WithContext(WithUser(r.Context(), user)))
	}
}

// handleHealthz handles GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListServers handles GET /api/v1/servers
func (s *Server) handleListServers(w http.ResponseWriter, r *http.Request) {
	profiles := s.servers.Profiles(r.Context())
	resp := ServerListResponse{Servers: make([]ServerInfo, 0, len(profiles))}
	for _, p := range profiles {
		resp.Servers = append(resp.Servers, serverInfo(p))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleGetServer handles GET /api/v1/servers/{id}
func (s *Server) handleGetServer(w http.ResponseWriter, r *http.Request) {
	p, err := s.servers.Profile(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, serverInfo(p))
}

// handleServerAction handles POST /api/v1/servers/{id}/{action}
func (s *Server) handleServerAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	action := r.PathValue("action")

	var err error
	switch action {
	case "start":
		err = s.servers.StartServer(ctx, id)
	case "stop":
		err = s.servers.StopServer(ctx, id)
	case "restart":
		err = s.servers.RestartServer(ctx, id)
	case "generate":
		s.handleGenerate(w, r)
		return
	default:
		s.writeError(w, http.StatusNotFound, "Unknown action: "+action)
		return
	}
	if err != nil {
		s.writeActionError(w, err)
		return
	}

	user, _ := UserFromContext(ctx)
	s.logger.Info(logging.DestinationHTTP, "API action", "user", user, "action", action, "server", id)

	p, err := s.servers.Profile(ctx, id)
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ActionResponse{Action: action, Server: serverInfo(p)})
}

// handleGenerate writes the config folder of a profile without starting it
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	g, err := s.servers.Generate(id)
	if err != nil {
		s.writeActionError(w, err)
		return
	}
	files := g.Files
	if files == nil {
		files = []string{}
	}
	s.writeJSON(w, http.StatusOK, GenerateResponse{
		ID:        id,
		Section:   g.Section,
		TargetDir: g.TargetDir,
		Map:       g.Map,
		Options:   g.Options,
		CmdLine:   g.CmdLine,
		Files:     files,
	})
}

// writeActionError maps launcher errors onto HTTP status codes
func (s *Server) writeActionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, launcher.ErrUnknownProfile):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, launcher.ErrNotRunning), errors.Is(err, launcher.ErrAlreadyRunning):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, generator.ErrNoMap):
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error(logging.DestinationHTTP, "API action failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}
