package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// Google OAuth 2.0 endpoints (OpenID Connect).
const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

// GoogleUser is the subset of the OpenID userinfo document the service
// consumes.
type GoogleUser struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
}

// GoogleClient drives the OAuth authorization-code flow against Google.
type GoogleClient struct {
	rest         *resty.Client
	clientID     string
	clientSecret string
}

// NewGoogleClient builds an OAuth client. Enabled() is false when the
// credentials are not configured.
func NewGoogleClient(clientID, clientSecret string, timeout time.Duration) *GoogleClient {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}
	return &GoogleClient{rest: r, clientID: clientID, clientSecret: clientSecret}
}

// Enabled reports whether OAuth credentials are configured.
func (g *GoogleClient) Enabled() bool {
	return g.clientID != "" && g.clientSecret != ""
}

// AuthURL builds the consent-screen redirect for the given callback.
func (g *GoogleClient) AuthURL(redirectURI, state string) string {
	q := url.Values{}
	q.Set("client_id", g.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "openid email profile")
	q.Set("state", state)
	return googleAuthURL + "?" + q.Encode()
}

type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange trades an authorization code for an access token.
func (g *GoogleClient) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	resp := &googleTokenResponse{}
	httpResp, err := g.rest.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"client_id":     g.clientID,
			"client_secret": g.clientSecret,
			"code":          code,
			"grant_type":    "authorization_code",
			"redirect_uri":  redirectURI,
		}).
		SetResult(resp).
		SetError(resp).
		Post(googleTokenURL)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	if httpResp.StatusCode() != 200 || resp.AccessToken == "" {
		return "", fmt.Errorf("token exchange rejected: %s %s", resp.Error, resp.ErrorDesc)
	}
	return resp.AccessToken, nil
}

// Userinfo fetches the authenticated user's profile.
func (g *GoogleClient) Userinfo(ctx context.Context, accessToken string) (*GoogleUser, error) {
	user := &GoogleUser{}
	httpResp, err := g.rest.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(user).
		Get(googleUserinfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	if httpResp.StatusCode() != 200 || user.Email == "" {
		return nil, fmt.Errorf("userinfo rejected: status %d", httpResp.StatusCode())
	}
	return user, nil
}
