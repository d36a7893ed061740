package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/azamatb/parcelhub/internal/config"
	"github.com/azamatb/parcelhub/internal/domain"
	"github.com/azamatb/parcelhub/internal/log"
)

// Profile is the transient identity a provider hands back after the code
// exchange. It is consumed once by ResolveUser and never persisted as-is.
type Profile struct {
	Email       string
	DisplayName string
	AvatarURL   string
}

// Provider is one row of the provider table: an oauth2 config plus a
// profile fetcher. All providers share the same login/callback flow.
type Provider struct {
	Name  string
	cfg   *oauth2.Config
	fetch func(ctx context.Context, hc *http.Client) (*Profile, error)
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// ExchangeAndFetch swaps the authorization code for a token and pulls the
// user's profile. Both round trips share one bounded deadline. Any
// provider-side failure is an authentication error, not a server error.
func (p *Provider) ExchangeAndFetch(ctx context.Context, code string) (*Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s code exchange failed: %v", domain.ErrUnauthorized, p.Name, err)
	}
	hc := oauth2.NewClient(ctx, p.cfg.TokenSource(ctx, tok))
	profile, err := p.fetch(ctx, hc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s profile fetch failed: %v", domain.ErrUnauthorized, p.Name, err)
	}
	return profile, nil
}

// BuildProviders evaluates the provider table once at startup. A provider is
// enabled iff all of its credential fields are non-empty; Microsoft also
// needs a tenant. Disabled providers are absent from the result, so their
// routes are never registered. Enabling any provider without a state secret
// is an error: an empty HMAC key would let anyone forge callback state.
func BuildProviders(cfg config.Config) ([]*Provider, error) {
	var out []*Provider
	if c := cfg.GitHub; c.ClientID != "" && c.ClientSecret != "" {
		out = append(out, newGitHub(c, cfg.BackendHost))
	}
	if c := cfg.Google; c.ClientID != "" && c.ClientSecret != "" {
		out = append(out, newGoogle(c, cfg.BackendHost))
	}
	if c := cfg.Microsoft; c.ClientID != "" && c.ClientSecret != "" && c.Tenant != "" {
		out = append(out, newMicrosoft(c, cfg.BackendHost))
	}
	if len(out) > 0 && cfg.OAuthStateSecret == "" {
		return nil, fmt.Errorf("OAUTH_STATE_SECRET must be set when an OAuth provider is enabled")
	}
	if cfg.EnablePasswordAuth && len(out) > 0 {
		log.S().Warnf("password authentication and %d OAuth provider(s) are both enabled; "+
			"for OAuth-only deployments set ENABLE_PASSWORD_AUTH=false", len(out))
	}
	return out, nil
}

func redirectURL(backendHost, provider string) string {
	return backendHost + "/callback/" + provider
}

func newGitHub(c config.OAuthCreds, host string) *Provider {
	return &Provider{
		Name: "github",
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  redirectURL(host, "github"),
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		fetch: fetchGitHubProfile,
	}
}

func newGoogle(c config.OAuthCreds, host string) *Provider {
	return &Provider{
		Name: "google",
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  redirectURL(host, "google"),
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		fetch: fetchGoogleProfile,
	}
}

func newMicrosoft(c config.OAuthCreds, host string) *Provider {
	return &Provider{
		Name: "microsoft",
		cfg: &oauth2.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			RedirectURL:  redirectURL(host, "microsoft"),
			Scopes:       []string{"openid", "email", "profile", "User.Read"},
			Endpoint:     microsoft.AzureADEndpoint(c.Tenant),
		},
		fetch: fetchMicrosoftProfile,
	}
}

func getJSON(ctx context.Context, hc *http.Client, url string, headers map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func fetchGitHubProfile(ctx context.Context, hc *http.Client) (*Profile, error) {
	var info struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	hdr := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if err := getJSON(ctx, hc, "https://api.github.com/user", hdr, &info); err != nil {
		return nil, err
	}
	// The public email may be hidden; fall back to the primary address.
	if info.Email == "" {
		var emails []struct {
			Email   string `json:"email"`
			Primary bool   `json:"primary"`
		}
		if err := getJSON(ctx, hc, "https://api.github.com/user/emails", hdr, &emails); err != nil {
			return nil, err
		}
		for _, e := range emails {
			if e.Primary {
				info.Email = e.Email
				break
			}
		}
		if info.Email == "" && len(emails) > 0 {
			info.Email = emails[0].Email
		}
	}
	name := info.Name
	if name == "" {
		name = info.Login
	}
	return &Profile{Email: info.Email, DisplayName: name, AvatarURL: info.AvatarURL}, nil
}

func fetchGoogleProfile(ctx context.Context, hc *http.Client) (*Profile, error) {
	var info struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := getJSON(ctx, hc, "https://www.googleapis.com/oauth2/v2/userinfo", nil, &info); err != nil {
		return nil, err
	}
	return &Profile{Email: info.Email, DisplayName: info.Name, AvatarURL: info.Picture}, nil
}

func fetchMicrosoftProfile(ctx context.Context, hc *http.Client) (*Profile, error) {
	var info struct {
		DisplayName       string `json:"displayName"`
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := getJSON(ctx, hc, "https://graph.microsoft.com/v1.0/me", nil, &info); err != nil {
		return nil, err
	}
	email := info.Mail
	if email == "" {
		email = info.UserPrincipalName
	}
	return &Profile{Email: email, DisplayName: info.DisplayName}, nil
}
