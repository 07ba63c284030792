package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebshopClient implements EntitlementOracle against the webshop's REST
// API. The webshop is treated as a boolean oracle only; package contents
// and payment state never cross this boundary.
type WebshopClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewWebshopClient creates a webshop oracle client.
func NewWebshopClient(baseURL, apiKey string, timeout time.Duration) *WebshopClient {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &WebshopClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// OwnsSKU reports whether the session's player owns the SKU right now.
func (c *WebshopClient) OwnsSKU(ctx context.Context, sessionID string, skuID int64) (bool, error) {
	url := fmt.Sprintf("%s/api/sessions/%s/skus/%d", c.baseURL, sessionID, skuID)
	return c.boolQuery(ctx, http.MethodGet, url)
}

// CanStartCommerceCheck reports whether the session may begin a commerce
// check.
func (c *WebshopClient) CanStartCommerceCheck(ctx context.Context, sessionID string) (bool, error) {
	url := fmt.Sprintf("%s/api/sessions/%s/commerce-check", c.baseURL, sessionID)
	return c.boolQuery(ctx, http.MethodPost, url)
}

// boolQuery performs a request whose body is {"result": bool}.
func (c *WebshopClient) boolQuery(ctx context.Context, method, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to build webshop request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("webshop request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("webshop returned status %d", resp.StatusCode)
	}

	var body struct {
		Result bool `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode webshop response: %w", err)
	}
	return body.Result, nil
}
