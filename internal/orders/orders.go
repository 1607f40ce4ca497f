// Package orders hands a finalized group order off to the external order
// service for write-once persistence.
package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/opentab/grouporder/internal/models"
)

// ErrUnavailable means the order service could not be reached or rejected
// the payload with a server error. The group order stays locked so the host
// can retry checkout.
var ErrUnavailable = errors.New("order service unavailable")

// LineItem is one flattened item of the combined ledger, attributed to the
// participant who ordered it.
type LineItem struct {
	ParticipantID   string                 `json:"participantId"`
	ParticipantName string                 `json:"participantName"`
	ProductID       string                 `json:"productId"`
	ProductName     string                 `json:"productName"`
	Size            string                 `json:"size"`
	Quantity        int                    `json:"quantity"`
	Customizations  []models.Customization `json:"customizations,omitempty"`
	Notes           string                 `json:"notes,omitempty"`
	LineTotal       float64                `json:"lineTotal"`
}

// CheckoutPayload is the finalized order handed to the order service.
type CheckoutPayload struct {
	Code     string            `json:"code"`
	Name     string            `json:"name,omitempty"`
	Items    []LineItem        `json:"items"`
	Splits   []models.Split    `json:"splits"`
	Subtotal float64           `json:"subtotal"`
	Tax      float64           `json:"tax"`
	Total    float64           `json:"total"`
	Details  map[string]string `json:"details,omitempty"`
}

// Client persists a finalized group order.
type Client interface {
	// PlaceOrder submits the payload and returns the persisted order's ID.
	PlaceOrder(ctx context.Context, payload *CheckoutPayload) (string, error)
}

// HTTPClient talks to the order service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates an order service client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// PlaceOrder POSTs the payload to {baseURL}/orders.
func (c *HTTPClient) PlaceOrder(ctx context.Context, payload *CheckoutPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode checkout payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: order service returned status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("order service returned status %d", resp.StatusCode)
	}

	var out struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode order response: %w", err)
	}
	if out.OrderID == "" {
		return "", fmt.Errorf("order service returned no order id")
	}
	return out.OrderID, nil
}
