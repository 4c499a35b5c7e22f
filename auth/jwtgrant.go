package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/flowsign/workflow-auth/internal/metrics"
	"github.com/flowsign/workflow-auth/provider"
	"github.com/flowsign/workflow-auth/sessions"
	"github.com/flowsign/workflow-auth/token"
)

// JwtGrant obtains tokens with a signed-assertion exchange. After the
// one-time consent it needs no user interaction, so expired tokens are
// replaced silently on the next CheckToken.
type JwtGrant struct {
	provider        *provider.Client
	targetAccountID string
	expiryBuffer    time.Duration
	metrics         *metrics.Metrics

	// Collapses concurrent refreshes for the same session into one exchange.
	group singleflight.Group

	nowTime func() time.Time
}

// NewJwtGrant creates the JWT-grant strategy.
func NewJwtGrant(p *provider.Client, targetAccountID string, expiryBuffer time.Duration, m *metrics.Metrics) *JwtGrant {
	return &JwtGrant{
		provider:        p,
		targetAccountID: targetAccountID,
		expiryBuffer:    expiryBuffer,
		metrics:         m,
		nowTime:         time.Now,
	}
}

// Method implements Strategy.
func (j *JwtGrant) Method() sessions.Method {
	return sessions.MethodJWT
}

// Login makes sure the session holds a fresh token and a resolved account,
// then reports the user's display name and email. The consent branch
// surfaces as *ConsentRequiredError so the handler can answer with the
// consent URL instead of a generic failure.
func (j *JwtGrant) Login(ctx context.Context, sess *sessions.Session) (LoginResult, error) {
	sess.Method = sessions.MethodJWT

	if !token.IsValid(sess.Token, j.expiryBuffer, j.nowTime()) {
		if err := j.refreshToken(ctx, sess); err != nil {
			return LoginResult{}, err
		}
	}

	if err := bindAccount(ctx, j.provider, j.targetAccountID, sess); err != nil {
		return LoginResult{}, err
	}

	sess.IsLoggedIn = true
	log.Info().Str("account_id", sess.Token.AccountID).Msg("jwt grant login complete")
	return LoginResult{Name: sess.UserName, Email: sess.UserEmail}, nil
}

// CheckToken refreshes an invalid token in place. Must be called before any
// downstream provider call. A consent-required answer cannot be satisfied
// without the user, so it also maps to false here.
func (j *JwtGrant) CheckToken(ctx context.Context, sess *sessions.Session) bool {
	if token.IsValid(sess.Token, j.expiryBuffer, j.nowTime()) {
		log.Debug().Str("session_id", sess.ID).Msg("checkToken: using current token")
		return true
	}

	log.Debug().Str("session_id", sess.ID).Msg("checkToken: replacing token")
	if err := j.refreshToken(ctx, sess); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("checkToken: token refresh failed")
		return false
	}
	return true
}

// IsLoggedIn implements Strategy. Never errors: decode failures are false.
func (j *JwtGrant) IsLoggedIn(sess *sessions.Session) bool {
	if !token.BearerAlive(sess.Token.AccessToken, j.nowTime()) {
		return false
	}
	return sess.IsLoggedIn
}

// Logout implements Strategy. No provider-side token revocation exists in
// this design; only the server-side session is destroyed.
func (j *JwtGrant) Logout(sess *sessions.Session) {
	sess.Reset()
}

// refreshToken performs the assertion exchange and writes the new token into
// the session, keeping the already-resolved account context. Concurrent
// callers for the same session share a single exchange.
func (j *JwtGrant) refreshToken(ctx context.Context, sess *sessions.Session) error {
	v, err, _ := j.group.Do(sess.ID, func() (any, error) {
		tok, err := j.provider.JWTUserToken(ctx)
		if errors.Is(err, provider.ErrConsentRequired) {
			j.metrics.ConsentRequired.Inc()
			j.metrics.TokenExchanges.WithLabelValues("jwt", "consent_required").Inc()
			return nil, &ConsentRequiredError{URL: j.provider.ConsentURL()}
		}
		if err != nil {
			j.metrics.TokenExchanges.WithLabelValues("jwt", "error").Inc()
			return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
		}
		j.metrics.TokenExchanges.WithLabelValues("jwt", "ok").Inc()
		return tok, nil
	})
	if err != nil {
		return err
	}

	tok := v.(provider.Token)
	sess.Token.AccessToken = tok.AccessToken
	sess.Token.ExpiresAt = tok.ExpiresAt
	return nil
}
