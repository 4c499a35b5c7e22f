package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/flowsign/workflow-auth/internal/config"
	"github.com/flowsign/workflow-auth/internal/metrics"
	"github.com/flowsign/workflow-auth/provider"
)

// fakeIdP is an in-process identity provider serving the token and userinfo
// endpoints, counting exchanges so tests can assert how many actually hit it.
type fakeIdP struct {
	mu            sync.Mutex
	jwtExchanges  int
	codeExchanges int
	consentMode   bool
	failMode      bool
	accessToken   string
	userinfo      map[string]any
}

func newFakeIdP(t *testing.T, now time.Time) *fakeIdP {
	t.Helper()
	return &fakeIdP{
		accessToken: mintBearer(t, now.Add(time.Hour)),
		userinfo: map[string]any{
			"sub":   "user-456",
			"name":  "Pat Example",
			"email": "pat@example.com",
			"accounts": []map[string]any{
				{"account_id": "A", "account_name": "Acme", "is_default": true, "base_uri": "https://eu.example.com"},
				{"account_id": "B", "account_name": "Beta", "base_uri": "https://us.example.com"},
			},
		},
	}
}

func mintBearer(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{"exp": exp.Unix()}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

func (f *fakeIdP) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.FormValue("grant_type") {
		case "urn:ietf:params:oauth:grant-type:jwt-bearer":
			f.jwtExchanges++
			if f.consentMode {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"consent_required"}`))
				return
			}
			if f.failMode {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"server_error"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": f.accessToken,
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "authorization_code":
			f.codeExchanges++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  f.accessToken,
				"refresh_token": "rt-1",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"unsupported_grant_type"}`))
		}
	})
	mux.HandleFunc("GET /oauth/userinfo", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.userinfo)
	})
	return mux
}

func (f *fakeIdP) counts() (jwt, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jwtExchanges, f.codeExchanges
}

// testEnv wires a provider client to a fakeIdP plus fresh metrics.
func testEnv(t *testing.T, idp *fakeIdP, now time.Time) (*provider.Client, *config.Config, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(idp.handler())
	t.Cleanup(srv.Close)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	cfg := &config.Config{
		OAuthServer:        srv.URL,
		ClientID:           "client-123",
		ClientSecret:       "secret",
		ImpersonatedUserID: "user-456",
		RedirectURI:        "http://localhost:8080/auth/passport/callback",
		Scopes:             []string{"signature", "impersonation"},
		TokenExpiryBuffer:  time.Minute,
		PrivateKey:         key,
	}

	p, err := provider.New(context.Background(), cfg,
		provider.WithHTTPClient(srv.Client()),
		provider.WithNowTime(func() time.Time { return now }))
	require.NoError(t, err)

	return p, cfg, metrics.New(prometheus.NewRegistry())
}
