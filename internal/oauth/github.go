// Package oauth implements GitHub sign in.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultAPIBase = "https://api.github.com"

// GithubUser is the part of GET /user we use.
type GithubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type GithubConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
	// overridable for tests
	Endpoint oauth2.Endpoint
	APIBase  string
}

type GithubClient struct {
	conf    *oauth2.Config
	http    *http.Client
	apiBase string
}

func NewGithubClient(cfg GithubConfig) *GithubClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Endpoint.TokenURL == "" {
		cfg.Endpoint = github.Endpoint
	}
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	return &GithubClient{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     cfg.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		http:    &http.Client{Timeout: cfg.Timeout},
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
	}
}

// Enabled reports whether client credentials are configured.
func (c *GithubClient) Enabled() bool {
	return c.conf.ClientID != "" && c.conf.ClientSecret != ""
}

func (c *GithubClient) AuthURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

func (c *GithubClient) ctx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// Exchange trades the callback code for an access token.
func (c *GithubClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.conf.Exchange(c.ctx(ctx), code)
}

// FetchUser loads the GitHub profile. A private email is looked up through
// /user/emails, taking the primary verified address.
func (c *GithubClient) FetchUser(ctx context.Context, token *oauth2.Token) (GithubUser, error) {
	client := c.conf.Client(c.ctx(ctx), token)

	var u GithubUser
	if err := c.getJSON(ctx, client, "/user", &u); err != nil {
		return GithubUser{}, err
	}
	if u.ID == 0 {
		return GithubUser{}, fmt.Errorf("github user without id")
	}
	if u.Email != "" {
		return u, nil
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := c.getJSON(ctx, client, "/user/emails", &emails); err != nil {
		// the scope may have been declined; continue without an email
		return u, nil
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			u.Email = e.Email
			break
		}
	}
	return u, nil
}

func (c *GithubClient) getJSON(ctx context.Context, client *http.Client, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
