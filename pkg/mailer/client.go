package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

var errAPIKeyRequired = errors.New("mailer api key is required")

// Client sends mail through the SendGrid v3 API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	defaultFrom string
}

// NewClient builds a mail client from config.
func NewClient(ctx context.Context, cfg config.MailerConfig, logg *logger.Logger) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errAPIKeyRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.sendgrid.com"
	}
	if logg != nil {
		logg.Info(ctx, "mailer client initialized")
	}
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     base,
		apiKey:      key,
		defaultFrom: cfg.DefaultFrom,
	}, nil
}

type sendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             emailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []contentPart     `json:"content"`
}

type personalization struct {
	To []emailAddress `json:"to"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type contentPart struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Send delivers one message. 4xx responses other than 429 are permanent.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return &PermanentError{Err: errors.New("recipient email is required")}
	}
	from := msg.From
	if from == "" {
		from = c.defaultFrom
	}

	content := []contentPart{}
	if msg.TextBody != "" {
		content = append(content, contentPart{Type: "text/plain", Value: msg.TextBody})
	}
	if msg.HTMLBody != "" {
		content = append(content, contentPart{Type: "text/html", Value: msg.HTMLBody})
	}
	if len(content) == 0 {
		return &PermanentError{Err: errors.New("message body is required")}
	}

	payload := sendRequest{
		Personalizations: []personalization{{To: []emailAddress{{Email: msg.To, Name: msg.ToName}}}},
		From:             emailAddress{Email: from},
		Subject:          msg.Subject,
		Content:          content,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("encoding mail request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	failure := fmt.Errorf("mail provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return &PermanentError{Err: failure}
	}
	return failure
}
