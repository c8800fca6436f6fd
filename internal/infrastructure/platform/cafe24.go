package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/config"
)

// Cafe24Client implements sync.PlatformClient against the Cafe24 Admin API.
// External IDs are product numbers.
type Cafe24Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

var _ sync.PlatformClient = (*Cafe24Client)(nil)

// NewCafe24Client creates a Cafe24 client from API configuration
func NewCafe24Client(cfg config.PlatformAPIConfig) (*Cafe24Client, error) {
	if cfg.BaseURL == "" || cfg.AccessToken == "" {
		return nil, ErrMissingAPIConfig
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Cafe24Client{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// Platform returns the platform this client talks to
func (c *Cafe24Client) Platform() sync.Platform {
	return sync.PlatformCafe24
}

type cafe24ProductEnvelope struct {
	Product struct {
		ProductNo string          `json:"product_no"`
		Price     decimal.Decimal `json:"price"`
		Quantity  int64           `json:"quantity"`
	} `json:"product"`
}

// GetInventory returns the live available quantity for a product number
func (c *Cafe24Client) GetInventory(ctx context.Context, externalID string) (int64, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v2/admin/products/%s", externalID), nil)
	if err != nil {
		return 0, err
	}
	var envelope cafe24ProductEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	return envelope.Product.Quantity, nil
}

// SetInventory sets the available quantity for a product number
func (c *Cafe24Client) SetInventory(ctx context.Context, externalID string, quantity int64) error {
	payload := map[string]any{
		"request": map[string]any{"product": map[string]any{"quantity": quantity}},
	}
	_, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/v2/admin/products/%s", externalID), payload)
	return err
}

// GetPrice returns the live selling price for a product number
func (c *Cafe24Client) GetPrice(ctx context.Context, externalID string) (decimal.Decimal, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v2/admin/products/%s", externalID), nil)
	if err != nil {
		return decimal.Zero, err
	}
	var envelope cafe24ProductEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	return envelope.Product.Price, nil
}

// SetPrice sets the selling price for a product number. KRW has no minor
// unit, so the price is sent as a whole number string.
func (c *Cafe24Client) SetPrice(ctx context.Context, externalID string, price decimal.Decimal) error {
	payload := map[string]any{
		"request": map[string]any{"product": map[string]any{"price": price.StringFixed(0)}},
	}
	_, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/api/v2/admin/products/%s", externalID), payload)
	return err
}

// doRequest performs one Admin API call with the same transient/permanent
// classification as the Shopify client
func (c *Cafe24Client) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("cafe24: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("cafe24: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.NewTransientError(fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shared.NewTransientError(fmt.Errorf("cafe24: failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, shared.NewTransientError(sync.ErrPlatformRateLimited)
	case resp.StatusCode >= 500:
		return nil, shared.NewTransientError(fmt.Errorf("%w: HTTP %d", sync.ErrPlatformRequestFailed, resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d", sync.ErrPlatformRequestFailed, resp.StatusCode)
	}

	return body, nil
}
