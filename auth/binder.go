package auth

import (
	"strings"

	"github.com/flowsign/workflow-auth/internal/config"
	"github.com/flowsign/workflow-auth/internal/metrics"
	"github.com/flowsign/workflow-auth/provider"
	"github.com/flowsign/workflow-auth/sessions"
)

// JWTPathPrefix marks requests that belong to the JWT-grant sub-route.
const JWTPathPrefix = "/auth/jwt"

// Binder owns both strategies and resolves which one a request runs under,
// so downstream handlers never inspect the grant type themselves.
type Binder struct {
	jwt *JwtGrant
	acg *AuthCodeGrant
}

// NewBinder wires both strategies to one provider client.
func NewBinder(p *provider.Client, cfg *config.Config, m *metrics.Metrics) *Binder {
	return &Binder{
		jwt: NewJwtGrant(p, cfg.TargetAccountID, cfg.TokenExpiryBuffer, m),
		acg: NewAuthCodeGrant(p, cfg.TargetAccountID, cfg.TokenExpiryBuffer, m),
	}
}

// Select resolves the active strategy for a request, in order: the method
// already recorded on the session, then the request path's auth sub-route,
// then the authorization-code default.
func (b *Binder) Select(sess *sessions.Session, path string) Strategy {
	switch sess.Method {
	case sessions.MethodJWT:
		return b.jwt
	case sessions.MethodACG:
		return b.acg
	}

	if strings.HasPrefix(path, JWTPathPrefix) {
		return b.jwt
	}
	return b.acg
}

// JWT returns the JWT-grant strategy for its route-specific entry points.
func (b *Binder) JWT() *JwtGrant {
	return b.jwt
}

// ACG returns the authorization-code strategy for its redirect entry points.
func (b *Binder) ACG() *AuthCodeGrant {
	return b.acg
}
