// Package catalog looks up product, size and customization prices from the
// external catalog service. The engine prices every item from these lookups;
// caller-supplied prices are never trusted.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNotFound means the product does not exist in the catalog.
	ErrNotFound = errors.New("product not found")
	// ErrUnavailable means the catalog could not be reached or answered with
	// a server error. Lookups failing with it may be retried.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Product is the catalog's priced view of one product.
type Product struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Prices maps size name to the base unit price.
	Prices map[string]float64 `json:"prices"`

	// Customizations maps add-on name to its price.
	Customizations map[string]float64 `json:"customizations,omitempty"`
}

// Client is the read-only catalog lookup used by the engine.
type Client interface {
	// Product returns the priced product for the given ID.
	Product(ctx context.Context, productID string) (*Product, error)
}

// HTTPClient talks to the catalog service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a catalog client for the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Product fetches GET {baseURL}/products/{id}.
func (c *HTTPClient) Product(ctx context.Context, productID string) (*Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/products/"+productID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("product %s: %w", productID, ErrNotFound)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: catalog returned status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	return &product, nil
}
