package token

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ExpiryClaim extracts the exp claim from a raw JWT without verifying the
// signature. The provider's access tokens are opaque bearers to us; the only
// thing read locally is the expiry.
func ExpiryClaim(rawToken string) (time.Time, error) {
	unverified, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}

	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return time.Time{}, errors.New("error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, errors.New("token missing exp claim")
	}

	return time.Unix(int64(exp), 0), nil
}

// BearerAlive reports whether rawToken decodes to a JWT whose exp claim is in
// the future. Any decode failure maps to false; it never panics or errors.
func BearerAlive(rawToken string, now time.Time) bool {
	if rawToken == "" {
		return false
	}
	exp, err := ExpiryClaim(rawToken)
	if err != nil {
		return false
	}
	return exp.After(now)
}
