package auth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowsign/workflow-auth/sessions"
	"github.com/flowsign/workflow-auth/token"
)

func TestAuthCodeGrantBeginRedirect(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idp := newFakeIdP(t, now)
	p, cfg, m := testEnv(t, idp, now)
	a := NewAuthCodeGrant(p, "", time.Minute, m)

	sess := sessions.Session{
		ID:         "s1",
		Method:     sessions.MethodJWT,
		IsLoggedIn: true,
		Token:      token.State{AccessToken: "leftover"},
	}
	loginURL := a.BeginRedirect(&sess)

	// Any prior login state is wiped before the new flow begins.
	require.False(t, sess.IsLoggedIn)
	require.False(t, sess.Token.HasToken())
	require.Equal(t, sessions.MethodACG, sess.Method)
	require.NotEmpty(t, sess.OAuthState)

	parsed, err := url.Parse(loginURL)
	require.NoError(t, err)
	require.Equal(t, sess.OAuthState, parsed.Query().Get("state"))
	require.Equal(t, cfg.ClientID, parsed.Query().Get("client_id"))
	require.Equal(t, cfg.RedirectURI, parsed.Query().Get("redirect_uri"))
}

func TestAuthCodeGrantCompleteCallback(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ExchangesCodeAndBindsAccount", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		a := NewAuthCodeGrant(p, "", time.Minute, m)

		sess := sessions.Session{ID: "s1"}
		a.BeginRedirect(&sess)

		result, err := a.CompleteCallback(context.Background(), &sess, "code-1", sess.OAuthState)
		require.NoError(t, err)

		require.Equal(t, "Pat Example", result.Name)
		require.Equal(t, "pat@example.com", result.Email)
		require.True(t, sess.IsLoggedIn)
		require.Equal(t, "A", sess.Token.AccountID)
		require.Equal(t, "https://eu.example.com/restapi", sess.Token.BasePath)
		require.Equal(t, "rt-1", sess.Token.RefreshToken)
		require.True(t, sess.Token.ExpiresAt.After(time.Now()))
		require.Empty(t, sess.OAuthState, "state is single-use")

		_, codeCount := idp.counts()
		require.Equal(t, 1, codeCount)
	})

	t.Run("StateMismatchAbortsWithoutExchange", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		a := NewAuthCodeGrant(p, "", time.Minute, m)

		sess := sessions.Session{ID: "s1"}
		a.BeginRedirect(&sess)

		_, err := a.CompleteCallback(context.Background(), &sess, "code-1", "forged-state")
		require.ErrorIs(t, err, ErrTokenExchangeFailed)
		require.False(t, sess.IsLoggedIn)

		_, codeCount := idp.counts()
		require.Equal(t, 0, codeCount)
	})

	t.Run("MissingStateAborts", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		a := NewAuthCodeGrant(p, "", time.Minute, m)

		sess := sessions.Session{ID: "s1"}
		_, err := a.CompleteCallback(context.Background(), &sess, "code-1", "")
		require.ErrorIs(t, err, ErrTokenExchangeFailed)
	})
}

func TestAuthCodeGrantCheckToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idp := newFakeIdP(t, now)
	p, _, m := testEnv(t, idp, now)
	a := NewAuthCodeGrant(p, "", time.Minute, m)
	a.nowTime = func() time.Time { return now }

	t.Run("ValidToken", func(t *testing.T) {
		sess := sessions.Session{Token: token.State{AccessToken: "tok", ExpiresAt: now.Add(time.Hour)}}
		require.True(t, a.CheckToken(context.Background(), &sess))
	})

	t.Run("ExpiredTokenIsNeverRefreshed", func(t *testing.T) {
		sess := sessions.Session{Token: token.State{
			AccessToken:  "tok",
			RefreshToken: "rt-1",
			ExpiresAt:    now.Add(-time.Minute),
		}}
		require.False(t, a.CheckToken(context.Background(), &sess))

		jwtCount, codeCount := idp.counts()
		require.Zero(t, jwtCount)
		require.Zero(t, codeCount)
	})
}

func TestAuthCodeGrantLogout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idp := newFakeIdP(t, now)
	p, _, m := testEnv(t, idp, now)
	a := NewAuthCodeGrant(p, "", time.Minute, m)
	a.nowTime = func() time.Time { return now }

	sess := sessions.Session{
		ID:         "s1",
		Method:     sessions.MethodACG,
		IsLoggedIn: true,
		Token:      token.State{AccessToken: mintBearer(t, now.Add(time.Hour)), RefreshToken: "rt-1"},
	}
	a.Logout(&sess)

	require.False(t, a.IsLoggedIn(&sess))
	require.False(t, sess.Token.HasToken())
	require.Empty(t, sess.Token.RefreshToken)
	require.Equal(t, sessions.MethodNone, sess.Method)
}
