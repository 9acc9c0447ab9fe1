package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"

	"github.com/kellervogt/restocker/internal/headers"
)

// ReserveResult is the shop's answer to a cart-add attempt. The upstream
// inventory is authoritative; Success false with a message is a normal
// outcome, not an error.
type ReserveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// FetchRaw retrieves the raw product payload for one product id. The caller
// decodes it through the catalog parser.
func (c *Client) FetchRaw(ctx context.Context, productID string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/products/%s?store=%s&locale=%s",
		c.baseURL, productID, c.storeID, c.locale)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header = headers.Build(c.baseURL, productID)
	c.applyCredentials(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "fetch product " + productID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read product " + productID, Err: err}
	}

	if resp.StatusCode == http.StatusForbidden {
		// Forbidden with a rotation configured usually means a burned proxy.
		c.rotateClient()
	}
	if resp.StatusCode >= 400 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: bodySample(body)}
	}
	return body, nil
}

type reserveRequest struct {
	ProductID      string `json:"product_id"`
	ChildProductID string `json:"child_product_id"`
	Qty            int    `json:"qty"`
	RequestID      string `json:"request_id"`
}

// Reserve attempts to claim inventory by adding the size variant to the cart.
// Each attempt carries a fresh request id so upstream can deduplicate.
func (c *Client) Reserve(ctx context.Context, productID, variantID string) (ReserveResult, error) {
	payload, err := json.Marshal(reserveRequest{
		ProductID:      productID,
		ChildProductID: variantID,
		Qty:            1,
		RequestID:      uuid.NewString(),
	})
	if err != nil {
		return ReserveResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/cart/add", bytes.NewReader(payload))
	if err != nil {
		return ReserveResult{}, err
	}
	req.Header = headers.Build(c.baseURL, productID)
	req.Header.Set("Content-Type", "application/json")
	c.applyCredentials(req)

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return ReserveResult{}, &NetworkError{Op: "reserve product " + productID, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ReserveResult{}, &NetworkError{Op: "read reserve response", Err: err}
	}

	if resp.StatusCode >= 400 {
		return ReserveResult{}, &UpstreamError{StatusCode: resp.StatusCode, Body: bodySample(body)}
	}

	var result ReserveResult
	if err := json.Unmarshal(body, &result); err != nil {
		return ReserveResult{}, fmt.Errorf("decode reserve response: %w", err)
	}
	return result, nil
}

// applyCredentials captures the credential state at request-construction
// time; a concurrent credential update affects the next request, not this one.
func (c *Client) applyCredentials(req *http.Request) {
	if c.creds == nil {
		return
	}
	authorization, cookie := c.creds.Snapshot()
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
}
