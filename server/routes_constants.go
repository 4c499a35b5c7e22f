package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// JWT grant sub-route
	RouteJWTLogin       = "/auth/jwt/login"
	RouteJWTLogout      = "/auth/jwt/logout"
	RouteJWTLoginStatus = "/auth/jwt/login-status"

	// Authorization code grant sub-route (the front end calls it "passport")
	RoutePassportLogin       = "/auth/passport/login"
	RoutePassportCallback    = "/auth/passport/callback"
	RoutePassportLogout      = "/auth/passport/logout"
	RoutePassportLoginStatus = "/auth/passport/login-status"

	// Workflow forwarding API
	RouteWorkflows        = "/api/workflows"
	RouteWorkflowTrigger  = "/api/workflows/{id}/trigger"
	RouteWorkflowPublish  = "/api/workflows/{id}/publish"
	RouteWorkflowPause    = "/api/workflows/{id}/pause"
	RouteWorkflowResume   = "/api/workflows/{id}/resume"
	RouteInstanceCancel   = "/api/workflows/instances/{id}/cancel"

	// Operational
	RouteHealth  = "/api/health"
	RouteMetrics = "/metrics"
)

// StatusConsentRequired is the status the JWT login answers with when the
// user must grant consent first. Deliberately outside 200/401/500 so the
// front end can branch on it; the body is the consent URL.
const StatusConsentRequired = 210
