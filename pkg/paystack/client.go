package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

var (
	errSecretKeyRequired = errors.New("paystack secret key is required")
	errReferenceRequired = errors.New("transaction reference is required")
)

// APIError is a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("paystack: %s (status %d)", e.Message, e.StatusCode)
}

// Client calls the Paystack REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient builds a Paystack client from config.
func NewClient(ctx context.Context, cfg config.PaystackConfig, logg *logger.Logger) (*Client, error) {
	secret := strings.TrimSpace(cfg.SecretKey)
	if secret == "" {
		return nil, errSecretKeyRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.paystack.co"
	}
	if logg != nil {
		logg.Info(ctx, "paystack client initialized")
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		secretKey:  secret,
	}, nil
}

// Initialize opens a transaction and returns the hosted checkout handle.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding initialize request: %w", err)
	}
	var result InitializeResult
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Verify fetches the current state of a transaction by reference.
func (c *Client) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return nil, errReferenceRequired
	}
	var result VerifyResult
	path := "/transaction/verify/" + url.PathEscape(ref)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling paystack: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading paystack response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var envelope apiEnvelope[json.RawMessage]
		message := http.StatusText(resp.StatusCode)
		if decodeErr := json.Unmarshal(raw, &envelope); decodeErr == nil && envelope.Message != "" {
			message = envelope.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	envelope := apiEnvelope[json.RawMessage]{}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decoding paystack envelope: %w", err)
	}
	if !envelope.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decoding paystack data: %w", err)
	}
	return nil
}
