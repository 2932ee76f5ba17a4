package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSConfig holds SMS gateway configuration. AccountSID and AuthToken
// come from the environment; their absence is a startup failure.
type SMSConfig struct {
	APIURL     string        // gateway message endpoint
	AccountSID string        // gateway account identifier
	AuthToken  string        // gateway auth token
	From       string        // sender number
	Timeout    time.Duration // per-request timeout (default: 5s)
}

// Validate validates the SMS configuration.
func (c *SMSConfig) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.AccountSID == "" {
		return fmt.Errorf("account SID is required")
	}
	if c.AuthToken == "" {
		return fmt.Errorf("auth token is required")
	}
	if c.From == "" {
		return fmt.Errorf("sender number is required")
	}
	return nil
}

// SMSTransport sends messages through an HTTP SMS gateway.
type SMSTransport struct {
	config     SMSConfig
	httpClient *http.Client
}

// NewSMSTransport creates a new SMS transport.
func NewSMSTransport(config SMSConfig) (*SMSTransport, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sms config: %w", err)
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &SMSTransport{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Name returns "sms".
func (t *SMSTransport) Name() string {
	return "sms"
}

// smsResponse is the gateway's response payload.
type smsResponse struct {
	SID     string `json:"sid"`
	Message string `json:"message,omitempty"`
}

// Send delivers one message through the gateway.
func (t *SMSTransport) Send(ctx context.Context, to, text string) (string, error) {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.config.From)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.config.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.config.AccountSID, t.config.AuthToken)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("sms gateway error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var parsed smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if parsed.SID == "" {
		return "", fmt.Errorf("gateway response missing message id")
	}

	return parsed.SID, nil
}

// Close is a no-op for the SMS transport.
func (t *SMSTransport) Close() error {
	return nil
}
