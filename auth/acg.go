package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/flowsign/workflow-auth/internal/metrics"
	"github.com/flowsign/workflow-auth/provider"
	"github.com/flowsign/workflow-auth/sessions"
	"github.com/flowsign/workflow-auth/token"
)

// AuthCodeGrant obtains tokens through the redirect-based login flow. The
// suspension point between BeginRedirect and CompleteCallback is the user's
// browser at the provider's hosted login page.
type AuthCodeGrant struct {
	provider        *provider.Client
	targetAccountID string
	expiryBuffer    time.Duration
	metrics         *metrics.Metrics

	nowTime func() time.Time
}

// NewAuthCodeGrant creates the authorization-code-grant strategy.
func NewAuthCodeGrant(p *provider.Client, targetAccountID string, expiryBuffer time.Duration, m *metrics.Metrics) *AuthCodeGrant {
	return &AuthCodeGrant{
		provider:        p,
		targetAccountID: targetAccountID,
		expiryBuffer:    expiryBuffer,
		metrics:         m,
		nowTime:         time.Now,
	}
}

// Method implements Strategy.
func (a *AuthCodeGrant) Method() sessions.Method {
	return sessions.MethodACG
}

// BeginRedirect clears any prior state, marks the session as an ACG login in
// progress, and returns the provider login URL to send the browser to.
func (a *AuthCodeGrant) BeginRedirect(sess *sessions.Session) string {
	sess.Reset()
	sess.Method = sessions.MethodACG
	sess.OAuthState = uuid.New().String()
	return a.provider.AuthCodeURL(sess.OAuthState)
}

// CompleteCallback consumes the provider callback: verifies the CSRF state,
// exchanges the code, stores tokens, resolves the account, and reports the
// user's name and email.
func (a *AuthCodeGrant) CompleteCallback(ctx context.Context, sess *sessions.Session, code, state string) (LoginResult, error) {
	if sess.OAuthState == "" || state != sess.OAuthState {
		return LoginResult{}, fmt.Errorf("%w: state mismatch", ErrTokenExchangeFailed)
	}
	sess.OAuthState = ""

	tok, err := a.provider.Exchange(ctx, code)
	if err != nil {
		a.metrics.TokenExchanges.WithLabelValues("authorization_code", "error").Inc()
		return LoginResult{}, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		a.metrics.TokenExchanges.WithLabelValues("authorization_code", "error").Inc()
		return LoginResult{}, fmt.Errorf("%w: provider returned no access token", ErrTokenExchangeFailed)
	}
	a.metrics.TokenExchanges.WithLabelValues("authorization_code", "ok").Inc()

	// The refresh token is stored but never exchanged: an expired ACG session
	// requires a new login. A production system would add the refresh-token
	// exchange in CheckToken.
	sess.Token = token.State{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}

	if err := bindAccount(ctx, a.provider, a.targetAccountID, sess); err != nil {
		return LoginResult{}, err
	}

	sess.IsLoggedIn = true
	log.Info().Str("account_id", sess.Token.AccountID).Msg("authorization code login complete")
	return LoginResult{Name: sess.UserName, Email: sess.UserEmail}, nil
}

// CheckToken implements Strategy. No silent refresh: when the token is
// expired the session counts as logged out and the user must log in again.
func (a *AuthCodeGrant) CheckToken(_ context.Context, sess *sessions.Session) bool {
	return token.IsValid(sess.Token, a.expiryBuffer, a.nowTime())
}

// IsLoggedIn implements Strategy. Never errors: decode failures are false.
func (a *AuthCodeGrant) IsLoggedIn(sess *sessions.Session) bool {
	if !token.BearerAlive(sess.Token.AccessToken, a.nowTime()) {
		return false
	}
	return sess.IsLoggedIn
}

// Logout implements Strategy.
func (a *AuthCodeGrant) Logout(sess *sessions.Session) {
	sess.Reset()
}
