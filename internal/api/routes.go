package api

import (
	"net/http"

	"inferd/internal/version"
)

// Route paths
const (
	PathChatCompletions = "/v1/chat/completions"
	PathHealth          = "/v1/health"
	PathStatus          = "/v1/status"
	PathSessions        = "/v1/sessions"
	PathCreateSession   = "/v1/sessions/create"
	PathReset           = "/v1/reset"
	PathMetrics         = "/metrics"
	PathOpenAPI         = "/openapi.json"
)

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	s.router.HandleFunc(PathChatCompletions, s.handleChatCompletions)

	s.router.HandleFunc(PathHealth, s.handleHealth)
	s.router.HandleFunc(PathStatus, s.handleStatus)

	s.router.HandleFunc(PathCreateSession, s.handleCreateSession)
	s.router.HandleFunc(PathSessions, s.handleListSessions)

	if s.cfg.Server.EnableReset {
		s.router.HandleFunc(PathReset, s.handleReset)
	} else {
		s.router.HandleFunc(PathReset, s.handleResetDisabled)
	}

	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.HandleFunc(PathMetrics, s.handleMetrics)
	}
	s.router.HandleFunc(PathOpenAPI, s.handleOpenAPISpec)

	// Root endpoint, also the fallback for unknown paths
	s.router.HandleFunc("/", s.handleRoot)
}

// endpoints lists the advertised routes by name.
func (s *Server) endpoints() map[string]string {
	eps := map[string]string{
		"chat_completions": PathChatCompletions,
		"health":           PathHealth,
		"status":           PathStatus,
		"sessions":         PathSessions,
		"create_session":   PathCreateSession,
		"docs":             PathOpenAPI,
	}
	if s.cfg.Server.EnableReset {
		eps["cleanup"] = PathReset + " (dev only)"
	}
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		eps["metrics"] = PathMetrics
	}
	return eps
}

// handleRoot handles requests to the root path
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFound(w, "No route for "+r.URL.Path)
		return
	}
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, map[string]interface{}{
		"name":      "inferd",
		"version":   version.Version,
		"status":    "operational",
		"endpoints": s.endpoints(),
	}, http.StatusOK)
}

// routeLabel maps a request path to a bounded metrics label.
func routeLabel(path string) string {
	switch path {
	case "/", PathChatCompletions, PathHealth, PathStatus, PathSessions,
		PathCreateSession, PathReset, PathMetrics, PathOpenAPI:
		return path
	}
	return "other"
}
