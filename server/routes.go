package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) initRoutes() {
	// JWT grant
	s.RegisterRouteHandler("GET "+RouteJWTLogin, ChainMiddleware(s.JWTLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteJWTLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteJWTLoginStatus, ChainMiddleware(s.LoginStatusHandler(), s.APIMiddleware()...))

	// Authorization code grant
	s.RegisterRouteHandler("GET "+RoutePassportLogin, ChainMiddleware(s.PassportLoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RoutePassportCallback, ChainMiddleware(s.PassportCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RoutePassportLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RoutePassportLoginStatus, ChainMiddleware(s.LoginStatusHandler(), s.APIMiddleware()...))

	// Workflow forwarding (all behind the fail-closed token check)
	s.RegisterRouteHandler("GET "+RouteWorkflows, s.protected(s.WorkflowListHandler()))
	s.RegisterRouteHandler("POST "+RouteWorkflows, s.protected(s.WorkflowCreateHandler()))
	s.RegisterRouteHandler("POST "+RouteWorkflowTrigger, s.protected(s.WorkflowTriggerHandler()))
	s.RegisterRouteHandler("POST "+RouteWorkflowPublish, s.protected(s.WorkflowPublishHandler()))
	s.RegisterRouteHandler("POST "+RouteWorkflowPause, s.protected(s.WorkflowPauseHandler()))
	s.RegisterRouteHandler("POST "+RouteWorkflowResume, s.protected(s.WorkflowResumeHandler()))
	s.RegisterRouteHandler("POST "+RouteInstanceCancel, s.protected(s.InstanceCancelHandler()))

	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
	s.RegisterRouteHandler("GET "+RouteMetrics, promhttp.Handler())
}

// protected wraps a handler with the standard API middleware plus the
// fail-closed RequireToken check.
func (s *Server) protected(h http.HandlerFunc) http.HandlerFunc {
	mw := append(s.APIMiddleware(), s.RequireToken())
	return ChainMiddleware(h, mw...)
}
