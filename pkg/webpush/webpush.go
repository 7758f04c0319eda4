package webpush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

// ErrSubscriptionGone signals the endpoint no longer exists and the
// subscription row should be pruned.
var ErrSubscriptionGone = errors.New("push subscription gone")

// Subscription is the endpoint a browser registered for push delivery.
type Subscription struct {
	Endpoint string
	P256DH   string
	Auth     string
}

// Notification is the payload shown to the user.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Pusher posts notifications to subscription endpoints.
type Pusher interface {
	Push(ctx context.Context, sub Subscription, note Notification) error
}

// Client is a minimal web push sender.
type Client struct {
	httpClient *http.Client
	enabled    bool
}

// NewClient builds a push client from config.
func NewClient(ctx context.Context, cfg config.PushConfig, logg *logger.Logger) *Client {
	if logg != nil && cfg.Enabled {
		logg.Info(ctx, "webpush client initialized")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		enabled:    cfg.Enabled,
	}
}

// Push posts the notification to the subscription endpoint. A 404 or
// 410 response maps to ErrSubscriptionGone.
func (c *Client) Push(ctx context.Context, sub Subscription, note Notification) error {
	if !c.enabled {
		return nil
	}
	if sub.Endpoint == "" {
		return ErrSubscriptionGone
	}

	body, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encoding push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", "86400")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pushing notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrSubscriptionGone
	default:
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
}
