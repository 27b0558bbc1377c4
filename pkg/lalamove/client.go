package lalamove

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Client is an authenticated HTTP client for the Lalamove v3 API. Every
// request is HMAC-signed; the client performs no retries of its own.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	market     string
	httpClient *http.Client
}

// APIError is returned for any non-2xx provider response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lalamove: status %d: %s", e.StatusCode, e.Body)
}

// envelope matches the provider's request/response wrapping: every body
// is nested under a top-level "data" key.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

func NewClient(baseURL, apiKey, apiSecret, market string) *Client {
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		market:    market,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// sign computes the hex HMAC-SHA256 over the provider's canonical string.
// The path must include the API version prefix and the body must be the
// exact bytes sent on the wire.
func (c *Client) sign(timestamp, method, path string, body []byte) string {
	raw := timestamp + "\r\n" + method + "\r\n" + path + "\r\n\r\n" + string(body)
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
		body, err = json.Marshal(struct {
			Data json.RawMessage `json:"data"`
		}{Data: data})
		if err != nil {
			return fmt.Errorf("failed to wrap request data: %w", err)
		}
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	signature := c.sign(timestamp, method, path, body)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", fmt.Sprintf("hmac %s:%s:%s", c.apiKey, timestamp, signature))
	req.Header.Set("Market", c.market)
	req.Header.Set("Request-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out == nil {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Data == nil {
		return fmt.Errorf("response missing data field")
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to parse response data: %w", err)
	}
	return nil
}

// GetQuotation requests a price quote for a route. The returned stop ids
// are required to place an order against the quotation.
func (c *Client) GetQuotation(ctx context.Context, req *QuotationRequest) (*Quotation, error) {
	var quotation Quotation
	if err := c.do(ctx, http.MethodPost, "/v3/quotations", req, &quotation); err != nil {
		return nil, err
	}
	return &quotation, nil
}

// PlaceOrder creates a delivery order referencing a prior quotation.
func (c *Client) PlaceOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/v3/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches the current provider-side state of a delivery order.
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/v3/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder requests a best-effort cancellation of a delivery order.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPut, "/v3/orders/"+orderID+"/cancel", nil, nil)
}

// GetDriverLocation returns the assigned driver's last known location,
// if a driver has been assigned.
func (c *Client) GetDriverLocation(ctx context.Context, orderID string) (*DriverLocation, error) {
	var loc DriverLocation
	if err := c.do(ctx, http.MethodGet, "/v3/orders/"+orderID+"/drivers", nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}
