package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/fxrumble/identity-service/internal/domain"
)

// Credentials holds one OAuth 2.0 client registration
type Credentials struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// codeProvider implements Provider for OAuth 2.0 authorization code providers.
// The per-provider part is the userinfo endpoint and the normalize func.
type codeProvider struct {
	name        domain.Provider
	config      *oauth2.Config
	userInfoURL string
	normalize   func(ctx context.Context, client *http.Client, raw map[string]any) (*Profile, error)
}

func (p *codeProvider) Name() domain.Provider {
	return p.name
}

func (p *codeProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state)
}

func (p *codeProvider) Callback(ctx context.Context, r *http.Request) (*Profile, error) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		return nil, fmt.Errorf("provider returned error: %s", errParam)
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, fmt.Errorf("missing authorization code")
	}

	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	client := p.config.Client(ctx, token)
	raw, err := fetchJSON(ctx, client, p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}

	return p.normalize(ctx, client, raw)
}

// NewFacebook creates the Facebook provider
func NewFacebook(creds Credentials) Provider {
	return &codeProvider{
		name: domain.ProviderFacebook,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.CallbackURL,
			Scopes:       []string{"email", "public_profile"},
			Endpoint:     endpoints.Facebook,
		},
		userInfoURL: "https://graph.facebook.com/me?fields=id,email,first_name,last_name,picture",
		normalize: func(_ context.Context, _ *http.Client, raw map[string]any) (*Profile, error) {
			id, _ := raw["id"].(string)
			if id == "" {
				return nil, ErrProfileIncomplete
			}
			email, _ := raw["email"].(string)
			firstName, _ := raw["first_name"].(string)
			lastName, _ := raw["last_name"].(string)
			return &Profile{
				ProviderID: id,
				Email:      email,
				FirstName:  firstName,
				LastName:   lastName,
			}, nil
		},
	}
}

// NewGitHub creates the GitHub provider
func NewGitHub(creds Credentials) Provider {
	return &codeProvider{
		name: domain.ProviderGitHub,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.CallbackURL,
			Scopes:       []string{"user:email"},
			Endpoint:     endpoints.GitHub,
		},
		userInfoURL: "https://api.github.com/user",
		normalize: func(ctx context.Context, client *http.Client, raw map[string]any) (*Profile, error) {
			id, ok := raw["id"].(float64)
			if !ok {
				return nil, ErrProfileIncomplete
			}

			name, _ := raw["name"].(string)
			if name == "" {
				name, _ = raw["login"].(string)
			}
			firstName, lastName := splitDisplayName(name)

			email, _ := raw["email"].(string)
			if email == "" {
				// Users with a private email expose it only on /user/emails
				email = fetchGitHubPrimaryEmail(ctx, client)
			}

			avatar, _ := raw["avatar_url"].(string)
			return &Profile{
				ProviderID: strconv.FormatInt(int64(id), 10),
				Email:      email,
				FirstName:  firstName,
				LastName:   lastName,
				AvatarURL:  avatar,
			}, nil
		},
	}
}

// NewGoogle creates the Google provider
func NewGoogle(creds Credentials) Provider {
	return &codeProvider{
		name: domain.ProviderGoogle,
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.CallbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		normalize: func(_ context.Context, _ *http.Client, raw map[string]any) (*Profile, error) {
			sub, _ := raw["sub"].(string)
			if sub == "" {
				return nil, ErrProfileIncomplete
			}
			email, _ := raw["email"].(string)
			firstName, _ := raw["given_name"].(string)
			lastName, _ := raw["family_name"].(string)
			avatar, _ := raw["picture"].(string)
			return &Profile{
				ProviderID: sub,
				Email:      email,
				FirstName:  firstName,
				LastName:   lastName,
				AvatarURL:  avatar,
			}, nil
		},
	}
}

// fetchGitHubPrimaryEmail returns the primary verified email, or "" if none
// is visible. A failure here degrades to the no-email branch rather than
// failing the login.
func fetchGitHubPrimaryEmail(ctx context.Context, client *http.Client) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.github.com/user/emails", nil)
	if err != nil {
		return ""
	}

	resp, err := client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	return ""
}

func fetchJSON(ctx context.Context, client *http.Client, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return raw, nil
}

// splitDisplayName splits a display name into first name and the rest
func splitDisplayName(name string) (string, string) {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
