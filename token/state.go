package token

import "time"

// State holds the credentials and resolved account context for one session.
// AccessToken and ExpiresAt are set and cleared together; the account fields
// are only meaningful while AccessToken is set.
type State struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"` // ACG only, never exchanged
	ExpiresAt    time.Time `json:"expires_at,omitzero"`

	AccountID   string `json:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty"`
	BasePath    string `json:"base_path,omitempty"`
}

// HasToken reports whether a credential has been established at all.
func (s State) HasToken() bool {
	return s.AccessToken != "" && !s.ExpiresAt.IsZero()
}

// Clear wipes the token and, with it, the account context.
func (s *State) Clear() {
	*s = State{}
}
