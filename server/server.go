package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flowsign/workflow-auth/auth"
	"github.com/flowsign/workflow-auth/internal/config"
	"github.com/flowsign/workflow-auth/internal/metrics"
	"github.com/flowsign/workflow-auth/sessions"
	"github.com/flowsign/workflow-auth/workflows"
)

// Server is the HTTP front for the auth core and the thin workflow
// forwarding controllers.
type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    *config.Config
	store     sessions.Repo
	binder    *auth.Binder
	workflows *workflows.Client
	metrics   *metrics.Metrics
	cookieKey []byte
}

// New assembles the server and registers all routes.
func New(cfg *config.Config, store sessions.Repo, binder *auth.Binder, wf *workflows.Client, m *metrics.Metrics) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("[Server New] session store is required")
	}
	if binder == nil {
		return nil, fmt.Errorf("[Server New] strategy binder is required")
	}

	s := &Server{
		env:       cfg.Env,
		mux:       http.NewServeMux(),
		config:    cfg,
		store:     store,
		binder:    binder,
		workflows: wf,
		metrics:   m,
		cookieKey: deriveCookieKey(cfg.SessionSecret),
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + resetColor
	} else {
		displayMethod = gray + paddedMethod + resetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
