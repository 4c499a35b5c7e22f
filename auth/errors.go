package auth

import "errors"

var (
	// ErrTokenExchangeFailed covers any provider or network failure during a
	// token exchange other than the consent branch. Not retried; the caller
	// must re-initiate login.
	ErrTokenExchangeFailed = errors.New("token exchange failed")

	// ErrInvalidSession marks a protected call made without a valid token.
	ErrInvalidSession = errors.New("invalid session")
)

// ConsentRequiredError is the recoverable "resource owner has not granted
// the requested scopes yet" condition. It carries the provider authorize URL
// the user must visit out-of-band, and must never reach a generic 500 path.
type ConsentRequiredError struct {
	URL string
}

func (e *ConsentRequiredError) Error() string {
	return "consent required: visit " + e.URL
}

// AsConsentRequired unwraps err into a ConsentRequiredError if it is one.
func AsConsentRequired(err error) (*ConsentRequiredError, bool) {
	var consentErr *ConsentRequiredError
	if errors.As(err, &consentErr) {
		return consentErr, true
	}
	return nil, false
}
