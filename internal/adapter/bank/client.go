// Package bank contains the HTTP client for the acquiring bank's
// authorization endpoint.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"card-payment-gateway/internal/core/ports"
	"card-payment-gateway/pkg/apperror"
)

const authorizePath = "/payments"

// Client calls the acquiring bank over HTTP. The bank's contract is narrow:
// 2xx carries an authorized/declined verdict, 400 means the bank refused to
// process the request at all. Anything else is an integration failure the
// caller must surface, never a payment outcome.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ ports.AcquiringBankClient = (*Client)(nil)

// NewClient creates a bank client with a hard per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Authorize submits one authorization request to the bank.
func (c *Client) Authorize(ctx context.Context, req ports.AuthorizationRequest) (*ports.AuthorizationResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encode bank request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authorizePath, bytes.NewReader(body))
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("build bank request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperror.ErrBankUnavailable(fmt.Errorf("call acquiring bank: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var out ports.AuthorizationResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, apperror.ErrBankUnavailable(fmt.Errorf("decode bank response: %w", err))
		}
		return &out, nil
	case resp.StatusCode == http.StatusBadRequest:
		// The bank refused the request outright. This is a business outcome,
		// not a failure of the integration.
		io.Copy(io.Discard, resp.Body)
		return nil, apperror.ErrPaymentRejected()
	default:
		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		return nil, apperror.ErrBankUnavailable(fmt.Errorf("acquiring bank returned status %d", resp.StatusCode))
	}
}
