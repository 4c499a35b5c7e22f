package provider

import "errors"

// ErrAccountNotFound is returned when no account can be selected for the
// login: empty list, no default flagged, or the configured target id is not
// among the user's accounts. It aborts the surrounding login flow.
var ErrAccountNotFound = errors.New("account not found")

// API calls are made against the account base URI plus this suffix.
const baseURISuffix = "/restapi"

// Account is one entry of the provider's account list for a user.
type Account struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	IsDefault   bool   `json:"is_default"`
	BaseURI     string `json:"base_uri"`
}

// BasePath is the root for API calls scoped to this account.
func (a Account) BasePath() string {
	return a.BaseURI + baseURISuffix
}

// ResolveAccount selects the account to bind the session to. With a
// targetAccountID the matching account is required; otherwise the account
// the provider flags as default.
func ResolveAccount(accounts []Account, targetAccountID string) (Account, error) {
	if targetAccountID != "" {
		for _, a := range accounts {
			if a.AccountID == targetAccountID {
				return a, nil
			}
		}
		return Account{}, ErrAccountNotFound
	}

	for _, a := range accounts {
		if a.IsDefault {
			return a, nil
		}
	}
	return Account{}, ErrAccountNotFound
}
