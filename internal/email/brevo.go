package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"
)

// BrevoClient delivers mail through a Brevo-compatible transactional email
// API. Any non-2xx status or transport error counts as channel failure; the
// router decides what happens next.
type BrevoClient struct {
	endpoint    string
	apiKey      string
	senderEmail string
	senderName  string
	httpClient  *http.Client
}

// NewBrevoClient builds the primary channel client with a 5s connect timeout
// and a 10s total request timeout.
func NewBrevoClient(endpoint, apiKey, senderEmail, senderName string) *BrevoClient {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &BrevoClient{
		endpoint:    endpoint,
		apiKey:      apiKey,
		senderEmail: senderEmail,
		senderName:  senderName,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
	}
}

type brevoPayload struct {
	Sender      brevoParty   `json:"sender"`
	To          []brevoParty `json:"to"`
	Subject     string       `json:"subject"`
	HTMLContent string       `json:"htmlContent"`
}

type brevoParty struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	content := msg.HTMLBody
	if content == "" {
		content = msg.TextBody
	}
	payload := brevoPayload{
		Sender:      brevoParty{Email: c.senderEmail, Name: c.senderName},
		To:          []brevoParty{{Email: msg.To, Name: msg.ToName}},
		Subject:     msg.Subject,
		HTMLContent: content,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email API call failed with status %d", resp.StatusCode)
	}
	return nil
}
