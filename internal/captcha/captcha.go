package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config is the bot-check gate configuration, resolved once per deployment
// rather than discovered from the flow's execution graph at render time.
type Config struct {
	Enabled   bool
	SiteKey   string
	SecretKey string
	VerifyURL string
}

// Required reports whether the gate must run for an attempt.
func (c Config) Required() bool {
	return c.Enabled && c.SiteKey != "" && c.SecretKey != ""
}

// Verifier checks a submitted challenge token against the verification
// service. A false verdict and a transport error are equivalent for callers:
// both fail the challenge.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Client talks to a reCAPTCHA-compatible verification endpoint.
type Client struct {
	endpoint   string
	secret     string
	httpClient *http.Client
}

// NewClient builds a verifier with a 5s connect timeout and a 10s total
// request timeout.
func NewClient(endpoint, secret string) *Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &Client{
		endpoint: endpoint,
		secret:   secret,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
	}
}

// Verify posts the token to the verification service. A blank token fails
// without a network round trip.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if strings.TrimSpace(token) == "" {
		return false, nil
	}

	form := url.Values{
		"secret":   {c.secret},
		"response": {token},
		"remoteip": {remoteIP},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("verify challenge: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verify challenge: unexpected status %d", resp.StatusCode)
	}

	var verdict struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return false, fmt.Errorf("decode verify response: %w", err)
	}
	return verdict.Success, nil
}
