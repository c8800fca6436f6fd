package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/channelsync/backend/internal/domain/shared"
	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/channelsync/backend/internal/infrastructure/config"
)

// maxResponseSize is the maximum allowed response size from a platform API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// ErrMissingAPIConfig indicates a platform client was built without its
// base URL or access token
var ErrMissingAPIConfig = errors.New("platform: base URL and access token are required")

// ShopifyClient implements sync.PlatformClient against the Shopify Admin API.
// External IDs are variant IDs.
type ShopifyClient struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

var _ sync.PlatformClient = (*ShopifyClient)(nil)

// NewShopifyClient creates a Shopify client from API configuration
func NewShopifyClient(cfg config.PlatformAPIConfig) (*ShopifyClient, error) {
	if cfg.BaseURL == "" || cfg.AccessToken == "" {
		return nil, ErrMissingAPIConfig
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ShopifyClient{
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}, nil
}

// Platform returns the platform this client talks to
func (c *ShopifyClient) Platform() sync.Platform {
	return sync.PlatformShopify
}

type shopifyVariantEnvelope struct {
	Variant struct {
		ID                int64           `json:"id"`
		SKU               string          `json:"sku"`
		Price             decimal.Decimal `json:"price"`
		InventoryQuantity int64           `json:"inventory_quantity"`
	} `json:"variant"`
}

// GetInventory returns the live available quantity for a variant
func (c *ShopifyClient) GetInventory(ctx context.Context, externalID string) (int64, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/admin/api/variants/%s.json", externalID), nil)
	if err != nil {
		return 0, err
	}
	var envelope shopifyVariantEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return 0, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	return envelope.Variant.InventoryQuantity, nil
}

// SetInventory sets the available quantity for a variant
func (c *ShopifyClient) SetInventory(ctx context.Context, externalID string, quantity int64) error {
	payload := map[string]any{
		"variant": map[string]any{"inventory_quantity": quantity},
	}
	_, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/admin/api/variants/%s.json", externalID), payload)
	return err
}

// GetPrice returns the live selling price for a variant
func (c *ShopifyClient) GetPrice(ctx context.Context, externalID string) (decimal.Decimal, error) {
	body, err := c.doRequest(ctx, http.MethodGet, fmt.Sprintf("/admin/api/variants/%s.json", externalID), nil)
	if err != nil {
		return decimal.Zero, err
	}
	var envelope shopifyVariantEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", sync.ErrPlatformInvalidResponse, err)
	}
	return envelope.Variant.Price, nil
}

// SetPrice sets the selling price for a variant
func (c *ShopifyClient) SetPrice(ctx context.Context, externalID string, price decimal.Decimal) error {
	payload := map[string]any{
		"variant": map[string]any{"price": price.StringFixed(2)},
	}
	_, err := c.doRequest(ctx, http.MethodPut, fmt.Sprintf("/admin/api/variants/%s.json", externalID), payload)
	return err
}

// doRequest performs one Admin API call. Network failures, 429 and 5xx are
// wrapped as transient so the caller's retry policy applies; other statuses
// fail permanently.
func (c *ShopifyClient) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("shopify: failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, shared.NewTransientError(fmt.Errorf("%w: %v", sync.ErrPlatformUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, shared.NewTransientError(fmt.Errorf("shopify: failed to read response: %w", err))
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
