package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultAuthURL   = "https://www.reddit.com/api/v1/access_token"
	defaultOAuthURL  = "https://oauth.reddit.com"
	defaultPublicURL = "https://www.reddit.com"
)

// tokenResponse is the OAuth token endpoint reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
}

// listing is the subset of a Reddit search listing we read.
type listing struct {
	Data struct {
		After    string `json:"after"`
		Children []struct {
			Kind string     `json:"kind"`
			Data submission `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// submission is one post in a listing.
type submission struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	CreatedUTC float64 `json:"created_utc"`
}

func (s submission) createdAt() time.Time {
	sec := int64(s.CreatedUTC)
	return time.Unix(sec, 0).UTC()
}

// client talks to the Reddit API, with or without OAuth.
type client struct {
	http *http.Client
	cfg  Config

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func newClient(cfg Config, hc *http.Client) *client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &client{http: hc, cfg: cfg}
}

func (c *client) authenticated() bool {
	return c.cfg.ClientID != "" && c.cfg.ClientSecret != "" &&
		c.cfg.Username != "" && c.cfg.Password != ""
}

// getToken returns a valid access token, requesting a new one through the
// password grant when the cached token is missing or about to expire.
func (c *client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.cfg.Username},
		"password":   {c.cfg.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if tok.Error != "" || tok.AccessToken == "" {
		return "", fmt.Errorf("token request rejected: %q", tok.Error)
	}

	c.accessToken = tok.AccessToken
	// Refresh a minute early.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn-60) * time.Second)
	return c.accessToken, nil
}

// search fetches one page of the subreddit search listing.
func (c *client) search(ctx context.Context, after string, limit int) (*listing, error) {
	q := url.Values{
		"q":           {c.cfg.Query},
		"restrict_sr": {"1"},
		"sort":        {c.cfg.Sort},
		"t":           {c.cfg.TimeFilter},
		"limit":       {strconv.Itoa(limit)},
		"raw_json":    {"1"},
	}
	if after != "" {
		q.Set("after", after)
	}

	var endpoint string
	if c.authenticated() {
		endpoint = fmt.Sprintf("%s/r/%s/search", c.cfg.OAuthURL, url.PathEscape(c.cfg.Subreddit))
	} else {
		endpoint = fmt.Sprintf("%s/r/%s/search.json", c.cfg.PublicURL, url.PathEscape(c.cfg.Subreddit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.authenticated() {
		token, err := c.getToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("get token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var l listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		return nil, fmt.Errorf("decoding listing: %w", err)
	}
	return &l, nil
}

// download fetches an image body, capped at maxBytes.
func (c *client) download(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxBytes)
	}
	return body, nil
}
