package gateway

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/padi-pay/padi_pay/internal/vendors"
)

// HTTPClient talks to the real funds-transfer gateway API.
type HTTPClient struct {
	baseURL     string
	secretKey   string
	webhookHash string
	client      *http.Client
}

// NewHTTPClient constructs a gateway connector. The caller bounds each
// request with a context deadline; the embedded client timeout is a
// backstop only.
func NewHTTPClient(baseURL, secretKey, webhookHash string) *HTTPClient {
	return &HTTPClient{
		baseURL:     baseURL,
		secretKey:   secretKey,
		webhookHash: webhookHash,
		client:      &http.Client{Timeout: 60 * time.Second},
	}
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitiatePayment requests a hosted checkout link for the reference.
func (c *HTTPClient) InitiatePayment(ctx context.Context, req PaymentRequest) (PaymentLink, error) {
	payload := map[string]any{
		"tx_ref":   req.Reference,
		"amount":   req.Amount,
		"currency": req.Currency,
		"customer": map[string]string{"email": req.Email},
		"meta":     map[string]string{"user_id": req.UserID},
	}
	var data struct {
		Link string `json:"link"`
	}
	if err := c.post(ctx, "/payments", payload, &data); err != nil {
		return PaymentLink{}, &vendors.Error{Vendor: vendors.Gateway, Op: "initiate payment", Message: "payment initiation failed", Err: err}
	}
	if data.Link == "" {
		return PaymentLink{}, &vendors.Error{Vendor: vendors.Gateway, Op: "initiate payment", Message: "no payment link in response"}
	}
	return PaymentLink{Reference: req.Reference, Link: data.Link, CreatedAt: time.Now().UTC()}, nil
}

// InitiateTransfer requests a payout to the given bank account.
func (c *HTTPClient) InitiateTransfer(ctx context.Context, req TransferRequest) (TransferReceipt, error) {
	payload := map[string]any{
		"reference":      req.Reference,
		"amount":         req.Amount,
		"currency":       req.Currency,
		"account_bank":   req.BankCode,
		"account_number": req.AccountNumber,
		"meta":           map[string]string{"user_id": req.UserID},
		"narration":      fmt.Sprintf("Wallet withdrawal %s", req.Reference),
	}
	var data struct {
		ID int64 `json:"id"`
	}
	if err := c.post(ctx, "/transfers", payload, &data); err != nil {
		return TransferReceipt{}, &vendors.Error{Vendor: vendors.Gateway, Op: "initiate transfer", Message: "transfer initiation failed", Err: err}
	}
	return TransferReceipt{
		Reference:        req.Reference,
		VendorTransferID: fmt.Sprintf("%d", data.ID),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// Verify fetches the gateway's record for the reference. The verified
// amount, not the webhook's, is what gets credited.
func (c *HTTPClient) Verify(ctx context.Context, reference string) (Verification, error) {
	var data struct {
		TxRef    string `json:"tx_ref"`
		Status   string `json:"status"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	}
	if err := c.get(ctx, "/transactions/verify_by_reference?tx_ref="+reference, &data); err != nil {
		return Verification{}, &vendors.Error{Vendor: vendors.Gateway, Op: "verify", Message: "verification failed", Err: err}
	}
	return Verification{
		Reference: reference,
		Status:    normalizeStatus(data.Status),
		Amount:    data.Amount,
		Currency:  data.Currency,
	}, nil
}

// VerifyBankAccount resolves the account holder for a bank account.
func (c *HTTPClient) VerifyBankAccount(ctx context.Context, bankCode, accountNumber string) (BankAccount, error) {
	payload := map[string]string{
		"account_bank":   bankCode,
		"account_number": accountNumber,
	}
	var data struct {
		AccountName string `json:"account_name"`
	}
	if err := c.post(ctx, "/accounts/resolve", payload, &data); err != nil {
		return BankAccount{}, &vendors.Error{Vendor: vendors.Gateway, Op: "resolve account", Message: "bank verification failed", Err: err}
	}
	if data.AccountName == "" {
		return BankAccount{}, &vendors.Error{Vendor: vendors.Gateway, Op: "resolve account", Message: "account could not be resolved"}
	}
	return BankAccount{AccountNumber: accountNumber, BankCode: bankCode, AccountName: data.AccountName}, nil
}

// Banks lists supported settlement banks.
func (c *HTTPClient) Banks(ctx context.Context) ([]Bank, error) {
	var banks []Bank
	if err := c.get(ctx, "/banks/NG", &banks); err != nil {
		return nil, &vendors.Error{Vendor: vendors.Gateway, Op: "list banks", Message: "bank listing failed", Err: err}
	}
	return banks, nil
}

// VerifyWebhookSignature checks the shared-secret hash the gateway sends
// on every webhook delivery.
func (c *HTTPClient) VerifyWebhookSignature(signature string) bool {
	if c.webhookHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte(c.webhookHash)) == 1
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
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

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 400 || envelope.Status != "success" {
		return fmt.Errorf("gateway responded %d: %s", resp.StatusCode, envelope.Message)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func normalizeStatus(raw string) vendors.Status {
	switch raw {
	case "successful", "SUCCESSFUL", "success":
		return vendors.StatusSuccess
	case "failed", "FAILED", "error", "cancelled":
		return vendors.StatusFailed
	default:
		return vendors.StatusPending
	}
}
