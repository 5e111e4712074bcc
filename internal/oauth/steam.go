package oauth

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/fxrumble/identity-service/internal/domain"
)

const (
	steamLoginURL        = "https://steamcommunity.com/openid/login"
	steamIDPrefix        = "https://steamcommunity.com/openid/id/"
	steamSummariesURL    = "https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v2/"
	openIDNS             = "http://specs.openid.net/auth/2.0"
	openIDIdentitySelect = "http://specs.openid.net/auth/2.0/identifier_select"
)

// SteamConfig configures the Steam OpenID 2.0 provider
type SteamConfig struct {
	APIKey    string
	ReturnURL string
	Realm     string
}

// steamProvider implements Provider over Steam's OpenID 2.0 flow. Steam
// never reports an email; the profile carries the persona name only, so a
// Steam-first account can never be merged with a local registration.
type steamProvider struct {
	config SteamConfig
	client *http.Client
}

// NewSteam creates the Steam provider
func NewSteam(config SteamConfig) Provider {
	return &steamProvider{
		config: config,
		client: http.DefaultClient,
	}
}

func (p *steamProvider) Name() domain.Provider {
	return domain.ProviderSteam
}

// AuthURL builds the checkid_setup redirect. The state rides in the
// return_to query string because OpenID 2.0 has no state parameter of its
// own; Steam echoes return_to back verbatim on the callback.
func (p *steamProvider) AuthURL(state string) string {
	returnTo := p.config.ReturnURL
	if strings.Contains(returnTo, "?") {
		returnTo += "&state=" + url.QueryEscape(state)
	} else {
		returnTo += "?state=" + url.QueryEscape(state)
	}

	query := url.Values{}
	query.Set("openid.ns", openIDNS)
	query.Set("openid.mode", "checkid_setup")
	query.Set("openid.return_to", returnTo)
	query.Set("openid.realm", p.config.Realm)
	query.Set("openid.identity", openIDIdentitySelect)
	query.Set("openid.claimed_id", openIDIdentitySelect)

	return steamLoginURL + "?" + query.Encode()
}

func (p *steamProvider) Callback(ctx context.Context, r *http.Request) (*Profile, error) {
	query := r.URL.Query()

	if query.Get("openid.mode") != "id_res" {
		return nil, fmt.Errorf("unexpected openid mode %q", query.Get("openid.mode"))
	}

	if err := p.verifyAssertion(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to verify openid assertion: %w", err)
	}

	claimedID := query.Get("openid.claimed_id")
	steamID := strings.TrimPrefix(claimedID, steamIDPrefix)
	if steamID == "" || steamID == claimedID {
		return nil, ErrProfileIncomplete
	}

	personaName, avatarURL, err := p.fetchPlayerSummary(ctx, steamID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch player summary: %w", err)
	}

	return &Profile{
		ProviderID: steamID,
		FirstName:  personaName,
		LastName:   "",
		AvatarURL:  avatarURL,
	}, nil
}

// verifyAssertion replays the signed fields back to Steam with
// check_authentication and requires is_valid:true in response.
func (p *steamProvider) verifyAssertion(ctx context.Context, query url.Values) error {
	form := url.Values{}
	for key, values := range query {
		if strings.HasPrefix(key, "openid.") && len(values) > 0 {
			form.Set(key, values[0])
		}
	}
	form.Set("openid.mode", "check_authentication")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, steamLoginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "is_valid:true" {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return fmt.Errorf("assertion rejected by steam")
}

func (p *steamProvider) fetchPlayerSummary(ctx context.Context, steamID string) (string, string, error) {
	query := url.Values{}
	query.Set("key", p.config.APIKey)
	query.Set("steamids", steamID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, steamSummariesURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Response struct {
			Players []struct {
				PersonaName string `json:"personaname"`
				AvatarFull  string `json:"avatarfull"`
			} `json:"players"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(payload.Response.Players) == 0 {
		return "", "", fmt.Errorf("no player found for steam id %s", steamID)
	}

	player := payload.Response.Players[0]
	return player.PersonaName, player.AvatarFull, nil
}
