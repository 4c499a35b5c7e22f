// Package provider is the client for the external identity provider: OAuth2
// endpoints (discovered via OIDC when the provider supports it), the
// JWT-grant assertion exchange, and the userinfo/account lookup.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/flowsign/workflow-auth/internal/config"
)

// ErrConsentRequired is returned by JWTUserToken when the resource owner has
// not yet granted the requested scopes. Recoverable: the caller should send
// the user to ConsentURL.
var ErrConsentRequired = errors.New("consent_required")

const (
	jwtBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime  = time.Hour
)

// Token is the result of a successful token exchange.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Client talks to the identity provider. Safe for concurrent use.
type Client struct {
	cfg          *config.Config
	oauth2Config *oauth2.Config
	oidcProvider *oidc.Provider // nil when the provider has no discovery document
	tokenURL     string
	userinfoURL  string
	httpClient   *http.Client
	nowTime      func() time.Time
}

// Option modifies a Client, primarily for testing.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) { c.nowTime = nowFunc }
}

// New builds a provider client. It attempts OIDC discovery against the
// configured server and falls back to the provider's fixed /oauth/* paths
// when no discovery document is served.
func New(ctx context.Context, cfg *config.Config, options ...Option) (*Client, error) {
	c := &Client{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(c)
	}

	endpoint := oauth2.Endpoint{
		AuthURL:  cfg.OAuthServer + "/oauth/auth",
		TokenURL: cfg.OAuthServer + "/oauth/token",
	}
	c.userinfoURL = cfg.OAuthServer + "/oauth/userinfo"

	discoveryCtx := oidc.ClientContext(ctx, c.httpClient)
	if p, err := oidc.NewProvider(discoveryCtx, cfg.OAuthServer); err == nil {
		c.oidcProvider = p
		endpoint = p.Endpoint()
	} else {
		log.Debug().Err(err).Str("issuer", cfg.OAuthServer).Msg("no OIDC discovery document, using fixed endpoints")
	}

	c.tokenURL = endpoint.TokenURL
	c.oauth2Config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
	}

	return c, nil
}

// AuthCodeURL returns the provider's hosted login page URL for the
// authorization code flow.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth2Config.AuthCodeURL(state)
}

// Exchange swaps an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	return tok, nil
}

// ConsentURL builds the provider authorize URL the user must visit once to
// grant the configured scopes to this integration.
func (c *Client) ConsentURL() string {
	v := url.Values{}
	v.Set("response_type", "code")
	v.Set("scope", strings.Join(c.cfg.Scopes, " "))
	v.Set("client_id", c.cfg.ClientID)
	v.Set("redirect_uri", c.cfg.RedirectURI)
	return c.oauth2Config.Endpoint.AuthURL + "?" + v.Encode()
}

// JWTUserToken obtains an access token via the JWT grant: a short-lived
// RS256 assertion signed with the integration key, exchanged at the token
// endpoint. Returns ErrConsentRequired when the provider reports that the
// impersonated user has not granted the requested scopes.
func (c *Client) JWTUserToken(ctx context.Context) (Token, error) {
	assertion, err := c.signAssertion()
	if err != nil {
		return Token{}, fmt.Errorf("signing assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrantType)
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var providerErr struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if err := json.Unmarshal(body, &providerErr); err == nil && providerErr.Error == "consent_required" {
			return Token{}, ErrConsentRequired
		}
		return Token{}, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return Token{}, fmt.Errorf("decoding token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return Token{}, errors.New("token endpoint returned no access_token")
	}

	return Token{
		AccessToken: tokenResp.AccessToken,
		ExpiresAt:   c.nowTime().Add(time.Duration(tokenResp.ExpiresIn) * time.Second),
	}, nil
}

// signAssertion builds the RS256 JWT the provider accepts as proof of the
// integration's identity: issuer is the client ID, subject the impersonated
// user, audience the provider host.
func (c *Client) signAssertion() (string, error) {
	now := c.nowTime()
	claims := jwtlib.MapClaims{
		"iss":   c.cfg.ClientID,
		"sub":   c.cfg.ImpersonatedUserID,
		"aud":   hostOf(c.cfg.OAuthServer),
		"iat":   now.Unix(),
		"exp":   now.Add(assertionLifetime).Unix(),
		"scope": strings.Join(c.cfg.Scopes, " "),
	}

	return jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims).SignedString(c.cfg.PrivateKey)
}

// hostOf strips the scheme: the provider expects a bare host as audience.
func hostOf(server string) string {
	if u, err := url.Parse(server); err == nil && u.Host != "" {
		return u.Host
	}
	return strings.TrimPrefix(strings.TrimPrefix(server, "https://"), "http://")
}
