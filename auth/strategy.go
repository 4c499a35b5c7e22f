// Package auth implements the two grant strategies and the per-request
// binding that exposes a uniform login/logout/isLoggedIn/checkToken contract
// to every downstream handler.
package auth

import (
	"context"
	"fmt"

	"github.com/flowsign/workflow-auth/provider"
	"github.com/flowsign/workflow-auth/sessions"
)

// LoginResult is what a completed login reports back to the front end.
type LoginResult struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Strategy is the uniform contract both grant types satisfy. All methods
// mutate only the given session record; persisting it is the caller's job.
type Strategy interface {
	// Method identifies the grant type.
	Method() sessions.Method

	// CheckToken reports whether the session holds a usable token, refreshing
	// it first when the strategy can do so silently. It never returns an
	// error: any failure means "caller must re-authenticate".
	CheckToken(ctx context.Context, sess *sessions.Session) bool

	// IsLoggedIn is the advisory login check. Fail-closed: a missing,
	// unparsable, or expired access token always yields false.
	IsLoggedIn(sess *sessions.Session) bool

	// Logout clears all session state for this strategy.
	Logout(sess *sessions.Session)
}

// bindAccount fetches the provider account list for the session's token,
// selects the target (or default) account, and persists account context and
// user identity into the session. An unresolvable account aborts the login.
func bindAccount(ctx context.Context, p *provider.Client, targetAccountID string, sess *sessions.Session) error {
	info, err := p.FetchUserInfo(ctx, sess.Token.AccessToken)
	if err != nil {
		return fmt.Errorf("fetching user info: %w", err)
	}

	account, err := provider.ResolveAccount(info.Accounts, targetAccountID)
	if err != nil {
		return err
	}

	sess.Token.AccountID = account.AccountID
	sess.Token.AccountName = account.AccountName
	sess.Token.BasePath = account.BasePath()
	sess.UserName = info.Name
	sess.UserEmail = info.Email
	return nil
}
