// Package paypal wraps the PayPal Invoicing REST API: creating and sending
// invoices, fetching their QR codes and polling payment status. The remote
// side is treated as unreliable; every call carries a bounded timeout and a
// small retry budget with backoff.
package paypal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tiemcom/internal/apperrors"
)

// Config holds PayPal connection details.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	BusinessName string
	Timeout      time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// Client is a PayPal invoicing client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a PayPal client with sane defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-m.sandbox.paypal.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Money is an amount in the payment provider's currency.
type Money struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

// InvoiceItem is a single priced line on an invoice.
type InvoiceItem struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice Money  `json:"unit_price"`
}

// InvoiceStatus is the provider's view of an invoice.
type InvoiceStatus struct {
	Status     string  `json:"status"`
	PaidAmount float64 `json:"paid_amount"`
}

// CreateInvoice creates a draft invoice for the given items and returns the
// provider's invoice ID.
func (c *Client) CreateInvoice(ctx context.Context, items []InvoiceItem) (string, error) {
	body := map[string]interface{}{
		"merchant_info": map[string]string{
			"business_name": c.cfg.BusinessName,
		},
		"items": items,
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, "create invoice", http.MethodPost, "/v1/invoicing/invoices", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", apperrors.GatewayError("create invoice", fmt.Errorf("response carried no invoice id"))
	}
	return resp.ID, nil
}

// SendInvoice moves a draft invoice to SENT so it becomes payable.
func (c *Client) SendInvoice(ctx context.Context, invoiceID string) error {
	path := fmt.Sprintf("/v1/invoicing/invoices/%s/send", invoiceID)
	return c.call(ctx, "send invoice", http.MethodPost, path, struct{}{}, nil)
}

// FetchQRCode returns the invoice's payment QR code as decoded PNG bytes.
func (c *Client) FetchQRCode(ctx context.Context, invoiceID string) ([]byte, error) {
	path := fmt.Sprintf("/v1/invoicing/invoices/%s/qr-code", invoiceID)
	var resp struct {
		Image string `json:"image"`
	}
	if err := c.call(ctx, "fetch QR code", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	img, err := base64.StdEncoding.DecodeString(resp.Image)
	if err != nil {
		return nil, apperrors.GatewayError("fetch QR code", fmt.Errorf("decode image: %w", err))
	}
	return img, nil
}

// CheckStatus fetches the invoice and reports its status and how much has
// been paid. A missing paid_amount reads as zero.
func (c *Client) CheckStatus(ctx context.Context, invoiceID string) (InvoiceStatus, error) {
	path := fmt.Sprintf("/v1/invoicing/invoices/%s", invoiceID)
	var resp struct {
		Status     string `json:"status"`
		PaidAmount *struct {
			Value string `json:"value"`
		} `json:"paid_amount"`
	}
	if err := c.call(ctx, "check invoice status", http.MethodGet, path, nil, &resp); err != nil {
		return InvoiceStatus{}, err
	}
	status := InvoiceStatus{Status: resp.Status}
	if resp.PaidAmount != nil {
		if v, err := strconv.ParseFloat(resp.PaidAmount.Value, 64); err == nil {
			status.PaidAmount = v
		}
	}
	return status, nil
}

// CancelInvoice cancels a sent invoice.
func (c *Client) CancelInvoice(ctx context.Context, invoiceID string) error {
	path := fmt.Sprintf("/v2/invoicing/invoices/%s/cancel", invoiceID)
	return c.call(ctx, "cancel invoice", http.MethodPost, path, struct{}{}, nil)
}

// call authenticates and performs one logical API call with retries.
// Transport errors and 5xx responses are retried with linear backoff until
// the budget runs out; 4xx responses fail immediately.
func (c *Client) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, c.cfg.RetryDelay*time.Duration(attempt)); err != nil {
				return apperrors.GatewayUnavailable(op, err)
			}
		}

		token, err := c.accessToken(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build %s request: %w", op, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
			continue
		case resp.StatusCode >= 400:
			return apperrors.GatewayError(op, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return apperrors.GatewayError(op, fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}
	return apperrors.GatewayUnavailable(op, lastErr)
}

// accessToken fetches an OAuth2 client-credentials token.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	endpoint := c.cfg.BaseURL + "/v1/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("authenticate with PayPal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("authenticate with PayPal: status %d", resp.StatusCode)
	}
	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("authenticate with PayPal: empty access token")
	}
	return tokenResp.AccessToken, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
