package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// UserInfo is the provider's view of the authenticated user, including every
// account the user can act in.
type UserInfo struct {
	Sub      string    `json:"sub"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Accounts []Account `json:"accounts"`
}

// FetchUserInfo looks up the user behind accessToken. When the provider was
// discovered via OIDC the verified userinfo endpoint is used; otherwise the
// fixed /oauth/userinfo path.
func (c *Client) FetchUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	if c.oidcProvider != nil {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
		info, err := c.oidcProvider.UserInfo(oidc.ClientContext(ctx, c.httpClient), ts)
		if err != nil {
			return nil, fmt.Errorf("userinfo: %w", err)
		}
		var ui UserInfo
		if err := info.Claims(&ui); err != nil {
			return nil, fmt.Errorf("decoding userinfo claims: %w", err)
		}
		return &ui, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo endpoint returned %d", resp.StatusCode)
	}

	var ui UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&ui); err != nil {
		return nil, fmt.Errorf("decoding userinfo: %w", err)
	}
	return &ui, nil
}
