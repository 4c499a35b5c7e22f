package sessions

import (
	"time"

	"github.com/flowsign/workflow-auth/token"
)

// Method tags which grant strategy owns a session.
type Method string

const (
	MethodNone Method = ""
	MethodJWT  Method = "jwt"
	MethodACG  Method = "authorization_code"
)

// Session is the server-side record for one browser session. Created on
// first use, Method set on first successful login, destroyed on logout or on
// a failed token check during a protected call.
type Session struct {
	ID     string      `json:"id"`
	Method Method      `json:"method,omitempty"`
	Token  token.State `json:"token"`

	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`

	// IsLoggedIn is the cached verdict from the last explicit login. It is
	// advisory only: privileged calls must go through a fresh CheckToken.
	IsLoggedIn bool `json:"is_logged_in"`

	// OAuthState is the CSRF state minted when the ACG redirect begins and
	// checked when the provider calls back.
	OAuthState string `json:"oauth_state,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Reset clears everything except the session identity, returning the record
// to its pre-login state.
func (s *Session) Reset() {
	s.Method = MethodNone
	s.Token.Clear()
	s.UserName = ""
	s.UserEmail = ""
	s.IsLoggedIn = false
	s.OAuthState = ""
}
