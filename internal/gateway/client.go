// Package gateway is the boundary to the external payment provider.  The
// core depends on two calls only: creating a transaction for an order
// reference and querying its status.  Everything else about the
// provider's protocol stays on the other side of this package.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Transaction is the result of registering an order with the gateway: an
// opaque token plus the URL the client is redirected to for payment.
type Transaction struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// Client talks to the gateway's HTTP API.  Authentication is the server
// key presented as a basic-auth username, the provider's convention.
type Client struct {
	baseURL   string
	serverKey string
	http      *http.Client
}

// New returns a Client for the given base URL and server key.
func New(baseURL, serverKey string) *Client {
	return &Client{
		baseURL:   baseURL,
		serverKey: serverKey,
		http:      &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateTransaction registers an order with the gateway and returns the
// payment token and redirect URL to hand to the client.
func (c *Client) CreateTransaction(ctx context.Context, orderRef string, grossAmount int64) (*Transaction, error) {
	payload := map[string]interface{}{
		"transaction_details": map[string]interface{}{
			"order_id":     orderRef,
			"gross_amount": grossAmount,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/snap/v1/transactions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway: create transaction returned %d", resp.StatusCode)
	}
	var tr Transaction
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// QueryStatus polls the gateway for the current transaction_status of an
// order reference.  The returned string feeds the same reconciliation
// path as webhook notifications.
func (c *Client) QueryStatus(ctx context.Context, orderRef string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/"+orderRef+"/status", nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gateway: status query returned %d", resp.StatusCode)
	}
	var out struct {
		TransactionStatus string `json:"transaction_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.TransactionStatus, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	auth := base64.StdEncoding.EncodeToString([]byte(c.serverKey + ":"))
	req.Header.Set("Authorization", "Basic "+auth)
}
