package airtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/padi-pay/padi_pay/internal/vendors"
)

// Biller response codes. The biller reports delivery through a code, not
// an HTTP status: anything that is neither delivered nor explicitly
// processing counts as a failure.
const (
	codeDelivered  = "000"
	codeProcessing = "099"
)

// HTTPClient talks to the real airtime biller API.
type HTTPClient struct {
	baseURL   string
	apiKey    string
	secretKey string
	client    *http.Client
}

// NewHTTPClient constructs a biller connector. Request deadlines come from
// the caller's context; the embedded client timeout is a backstop only.
func NewHTTPClient(baseURL, apiKey, secretKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:   baseURL,
		apiKey:    apiKey,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 60 * time.Second},
	}
}

type billerResponse struct {
	Code        string `json:"code"`
	Description string `json:"response_description"`
	Content     struct {
		Services []struct {
			ServiceID string `json:"serviceID"`
			Name      string `json:"name"`
			Minimum   int64  `json:"minimium_amount"`
			Maximum   int64  `json:"maximum_amount"`
		} `json:"services"`
	} `json:"content"`
}

// Services lists the purchasable airtime products.
func (c *HTTPClient) Services(ctx context.Context) ([]Product, error) {
	var resp billerResponse
	if err := c.get(ctx, "/services?identifier=airtime", &resp); err != nil {
		return nil, &vendors.Error{Vendor: vendors.Airtime, Op: "list services", Message: "service listing failed", Err: err}
	}
	products := make([]Product, 0, len(resp.Content.Services))
	for _, s := range resp.Content.Services {
		products = append(products, Product{
			ServiceID: s.ServiceID,
			Name:      s.Name,
			MinAmount: s.Minimum,
			MaxAmount: s.Maximum,
		})
	}
	return products, nil
}

// Purchase submits an airtime delivery request.
func (c *HTTPClient) Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	payload := map[string]any{
		"request_id": req.RequestID,
		"serviceID":  req.ServiceID,
		"phone":      req.Phone,
		"amount":     req.Amount,
	}
	var resp billerResponse
	if err := c.post(ctx, "/pay", payload, &resp); err != nil {
		return PurchaseResult{}, &vendors.Error{Vendor: vendors.Airtime, Op: "purchase", Message: "purchase failed", Err: err}
	}
	return PurchaseResult{
		RequestID: req.RequestID,
		Status:    statusFromCode(resp.Code),
		Message:   resp.Description,
	}, nil
}

// Requery asks the biller for the current state of an earlier purchase.
func (c *HTTPClient) Requery(ctx context.Context, requestID string) (PurchaseResult, error) {
	payload := map[string]any{"request_id": requestID}
	var resp billerResponse
	if err := c.post(ctx, "/requery", payload, &resp); err != nil {
		return PurchaseResult{}, &vendors.Error{Vendor: vendors.Airtime, Op: "requery", Message: "requery failed", Err: err}
	}
	return PurchaseResult{
		RequestID: requestID,
		Status:    statusFromCode(resp.Code),
		Message:   resp.Description,
	}, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, out *billerResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) get(ctx context.Context, path string, out *billerResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out *billerResponse) error {
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("secret-key", c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("biller responded %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func statusFromCode(code string) vendors.Status {
	switch code {
	case codeDelivered:
		return vendors.StatusSuccess
	case codeProcessing:
		return vendors.StatusPending
	default:
		return vendors.StatusFailed
	}
}
