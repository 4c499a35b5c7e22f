package config

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration. A missing required
// variable is a startup error, never a runtime one.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppName string `env:"APP_NAME" envDefault:"Workflow Auth"`
	Env     string `env:"ENV" envDefault:"DEV"`

	// Identity provider settings
	OAuthServer  string `env:"OAUTH_SERVER,required"` // e.g. https://account-d.example.com
	ClientID     string `env:"CLIENT_ID,required"`
	ClientSecret string `env:"CLIENT_SECRET,required"`

	// JWT grant: the user the integration acts on behalf of, and the key
	// that signs the assertion.
	ImpersonatedUserID string `env:"USER_ID,required"`
	PrivateKeyPath     string `env:"PRIVATE_KEY_PATH" envDefault:"./private.key"`

	// Where the provider sends the browser back after login or consent.
	RedirectURI string `env:"REDIRECT_URI,required"`

	// Optional: pin logins to one provider account. Empty selects the
	// account the provider flags as default.
	TargetAccountID string `env:"TARGET_ACCOUNT_ID"`

	Scopes []string `env:"SCOPES" envDefault:"signature,aow_manage,impersonation"`

	// How long before real expiry a token is treated as expired.
	TokenExpiryBuffer time.Duration `env:"TOKEN_EXPIRY_BUFFER" envDefault:"1m"`

	SessionSecret string        `env:"SESSION_SECRET,required"`
	MaxSessionAge time.Duration `env:"MAX_SESSION_AGE" envDefault:"8h"`

	// Empty means the in-memory session store.
	RedisURL string `env:"REDIS_URL"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000"`

	// Loaded from PrivateKeyPath during Load.
	PrivateKey *rsa.PrivateKey `env:"-"`
}

// Load reads configuration from the environment. It first attempts to load a
// .env file if present, then parses env vars and the JWT-grant signing key.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	pemBytes, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("reading private key %s: %w", cfg.PrivateKeyPath, err)
	}
	cfg.PrivateKey, err = jwtlib.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing private key %s: %w", cfg.PrivateKeyPath, err)
	}

	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// IsDev reports whether the service runs in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "DEV"
}
