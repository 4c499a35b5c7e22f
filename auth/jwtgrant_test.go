package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flowsign/workflow-auth/provider"
	"github.com/flowsign/workflow-auth/sessions"
	"github.com/flowsign/workflow-auth/token"
)

func TestJwtGrantLogin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ExchangesAndBindsDefaultAccount", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1"}
		result, err := j.Login(context.Background(), &sess)
		require.NoError(t, err)

		require.Equal(t, "Pat Example", result.Name)
		require.Equal(t, "pat@example.com", result.Email)
		require.True(t, sess.IsLoggedIn)
		require.Equal(t, sessions.MethodJWT, sess.Method)
		require.Equal(t, "A", sess.Token.AccountID)
		require.Equal(t, "Acme", sess.Token.AccountName)
		require.Equal(t, "https://eu.example.com/restapi", sess.Token.BasePath)
		require.True(t, sess.Token.ExpiresAt.Equal(now.Add(time.Hour)))

		jwtCount, _ := idp.counts()
		require.Equal(t, 1, jwtCount)
	})

	t.Run("TargetAccountOverridesDefault", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "B", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1"}
		_, err := j.Login(context.Background(), &sess)
		require.NoError(t, err)
		require.Equal(t, "B", sess.Token.AccountID)
	})

	t.Run("UnknownTargetAccountAbortsLogin", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "Z", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1"}
		_, err := j.Login(context.Background(), &sess)
		require.ErrorIs(t, err, provider.ErrAccountNotFound)
		require.False(t, sess.IsLoggedIn)
		require.Empty(t, sess.Token.AccountID)
	})

	t.Run("ConsentRequiredSurfacesURLAndStaysLoggedOut", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		idp.consentMode = true
		p, cfg, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1"}
		_, err := j.Login(context.Background(), &sess)
		require.Error(t, err)

		consentErr, ok := AsConsentRequired(err)
		require.True(t, ok)

		consentURL, parseErr := url.Parse(consentErr.URL)
		require.NoError(t, parseErr)
		require.Equal(t, strings.Join(cfg.Scopes, " "), consentURL.Query().Get("scope"))
		require.Equal(t, cfg.RedirectURI, consentURL.Query().Get("redirect_uri"))
		require.Equal(t, cfg.ClientID, consentURL.Query().Get("client_id"))

		require.False(t, sess.IsLoggedIn)
		require.False(t, sess.Token.HasToken())
	})
}

func TestJwtGrantCheckToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("ValidTokenCausesNoExchange", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1", Token: token.State{AccessToken: "tok", ExpiresAt: now.Add(time.Hour)}}
		for i := 0; i < 3; i++ {
			require.True(t, j.CheckToken(context.Background(), &sess))
		}

		jwtCount, _ := idp.counts()
		require.Equal(t, 0, jwtCount)
	})

	t.Run("ExpiredTokenIsReplacedKeepingAccountContext", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		p, _, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1", Token: token.State{
			AccessToken: "stale",
			ExpiresAt:   now.Add(-time.Minute),
			AccountID:   "A",
			AccountName: "Acme",
			BasePath:    "https://eu.example.com/restapi",
		}}
		require.True(t, j.CheckToken(context.Background(), &sess))

		require.NotEqual(t, "stale", sess.Token.AccessToken)
		require.True(t, sess.Token.ExpiresAt.Equal(now.Add(time.Hour)))
		require.Equal(t, "A", sess.Token.AccountID)
		require.Equal(t, "https://eu.example.com/restapi", sess.Token.BasePath)

		jwtCount, _ := idp.counts()
		require.Equal(t, 1, jwtCount)
	})

	t.Run("ExchangeFailureFailsClosed", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		idp.failMode = true
		p, _, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1"}
		require.False(t, j.CheckToken(context.Background(), &sess))
		require.False(t, sess.Token.HasToken())
	})

	t.Run("ConsentRequiredFailsClosed", func(t *testing.T) {
		idp := newFakeIdP(t, now)
		idp.consentMode = true
		p, _, m := testEnv(t, idp, now)
		j := NewJwtGrant(p, "", time.Minute, m)
		j.nowTime = func() time.Time { return now }

		sess := sessions.Session{ID: "s1"}
		require.False(t, j.CheckToken(context.Background(), &sess))
	})
}

func TestJwtGrantIsLoggedIn(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idp := newFakeIdP(t, now)
	p, _, m := testEnv(t, idp, now)
	j := NewJwtGrant(p, "", time.Minute, m)
	j.nowTime = func() time.Time { return now }

	t.Run("AliveBearerAndCachedFlag", func(t *testing.T) {
		sess := sessions.Session{IsLoggedIn: true, Token: token.State{AccessToken: mintBearer(t, now.Add(time.Hour))}}
		require.True(t, j.IsLoggedIn(&sess))
	})

	t.Run("ExpiredBearerReadsLoggedOut", func(t *testing.T) {
		sess := sessions.Session{IsLoggedIn: true, Token: token.State{AccessToken: mintBearer(t, now.Add(-time.Hour))}}
		require.False(t, j.IsLoggedIn(&sess))
	})

	t.Run("OpaqueTokenReadsLoggedOut", func(t *testing.T) {
		sess := sessions.Session{IsLoggedIn: true, Token: token.State{AccessToken: "not-a-jwt"}}
		require.False(t, j.IsLoggedIn(&sess))
	})

	t.Run("FlagAloneIsNotEnough", func(t *testing.T) {
		sess := sessions.Session{IsLoggedIn: true}
		require.False(t, j.IsLoggedIn(&sess))
	})
}

func TestJwtGrantLogout(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	idp := newFakeIdP(t, now)
	p, _, m := testEnv(t, idp, now)
	j := NewJwtGrant(p, "", time.Minute, m)

	sess := sessions.Session{
		ID:         "s1",
		Method:     sessions.MethodJWT,
		IsLoggedIn: true,
		UserName:   "Pat Example",
		Token:      token.State{AccessToken: "tok", AccountID: "A"},
	}
	j.Logout(&sess)

	require.Equal(t, "s1", sess.ID)
	require.Equal(t, sessions.MethodNone, sess.Method)
	require.False(t, sess.IsLoggedIn)
	require.Empty(t, sess.UserName)
	require.False(t, sess.Token.HasToken())
	require.Empty(t, sess.Token.AccountID)
}
