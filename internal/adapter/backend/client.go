// Package backend provides an HTTP client for the sales backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout bounds every backend call.
const DefaultTimeout = 10 * time.Second

// maxErrorBody caps how much of an error response is kept in Error.Message.
const maxErrorBody = 512

// Client is an HTTP client for the sales backend.
// It performs one request per call, without retries or caching.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new backend client. A non-positive timeout selects DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GetCustomer calls GET /customer?pesel=.
func (c *Client) GetCustomer(ctx context.Context, pesel string) (*Customer, error) {
	q := url.Values{}
	q.Set("pesel", pesel)

	var customer Customer
	if err := c.do(ctx, "get customer", http.MethodGet, "/customer", q, nil, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetCatalog calls GET /component-catalog, filtered by product type when one is given.
func (c *Client) GetCatalog(ctx context.Context, productType string) ([]CatalogItem, error) {
	var q url.Values
	if productType != "" {
		q = url.Values{}
		q.Set("type", productType)
	}

	var items []CatalogItem
	if err := c.do(ctx, "get catalog", http.MethodGet, "/component-catalog", q, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CreateOrder calls POST /order.
func (c *Client) CreateOrder(ctx context.Context, customerID int64, catalogIDs []int64) (*Order, error) {
	req := &OrderRequest{CustomerID: customerID, ComponentCatalogIDs: catalogIDs}

	var order Order
	if err := c.do(ctx, "create order", http.MethodPost, "/order", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetInvoices calls GET /invoices?customerId=.
func (c *Client) GetInvoices(ctx context.Context, customerID int64) ([]Invoice, error) {
	q := url.Values{}
	q.Set("customerId", strconv.FormatInt(customerID, 10))

	var invoices []Invoice
	if err := c.do(ctx, "get invoices", http.MethodGet, "/invoices", q, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: KindDecode, Op: op, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Accept", "application/json")
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Error{Kind: KindNotFound, Op: op, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Error{
			Kind:       KindStatus,
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBody)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return &Error{Kind: KindTimeout, Op: op, Err: err}
		}
		return &Error{Kind: KindDecode, Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func classifyTransportError(op string, err error) error {
	if isTimeout(err) {
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	}
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
