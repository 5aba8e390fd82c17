package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the configuration for connecting to the Chainboard API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// ChainboardClient is a pure HTTP client for the Chainboard dashboard API.
type ChainboardClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewChainboardClient creates a new client for the dashboard API.
func NewChainboardClient(cfg Config) *ChainboardClient {
	return &ChainboardClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *ChainboardClient) doRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			if apiErr.Details != "" {
				return nil, fmt.Errorf("API error (%d): %s: %s", resp.StatusCode, apiErr.Error, apiErr.Details)
			}
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// AssessRisk runs a risk assessment for a candidate transaction.
func (c *ChainboardClient) AssessRisk(ctx context.Context, fromAddress, toAddress, amount string) (json.RawMessage, error) {
	body := map[string]string{"toAddress": toAddress}
	if fromAddress != "" {
		body["fromAddress"] = fromAddress
	}
	if amount != "" {
		body["amount"] = amount
	}
	return c.doRequest(ctx, http.MethodPost, "/v1/risk/assess", body)
}

// GasPrices returns current gas conditions.
func (c *ChainboardClient) GasPrices(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/gas/prices", nil)
}

// NetworkStats returns dashboard network statistics.
func (c *ChainboardClient) NetworkStats(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/network/stats", nil)
}
