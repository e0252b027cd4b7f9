// File: internal/infra/adapters/verify/http_client.go
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"handyai-billing/internal/domain/ports/adapter"
)

var _ adapter.VerifyClient = (*HTTPClient)(nil)

// HTTPClient calls the external purchase-verification endpoint. A non-2xx
// status or malformed body is a transport error (retryable); a parsed
// Success=false is a well-formed rejection the caller treats as terminal.
type HTTPClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPClient(endpoint string, timeout time.Duration) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, errors.New("verify endpoint empty")
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid verify endpoint: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) VerifyPurchase(ctx context.Context, body adapter.VerifyRequest) (*adapter.VerifyResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("verify endpoint status %d", resp.StatusCode)
	}
	var out adapter.VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode verify response: %w", err)
	}
	return &out, nil
}
