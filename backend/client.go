// Package backend is the REST client for the bill-payment backend.
//
// Mutating calls go through a plain HTTP client and are never retried
// automatically: payment initialization and verification must each reach the
// backend at most once per attempt. Read-only queries (balance, history,
// identity checks) are idempotent and go through a retrying client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const defaultTimeout = 15 * time.Second

// Client talks to the bill-payment backend.
type Client struct {
	baseURL    string
	httpClient *http.Client // mutations, no automatic retry
	getClient  *http.Client // idempotent reads, retried on transient failure
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout for both underlying clients.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
		c.getClient.Timeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 250 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		getClient:  rc.StandardClient(),
		log:        zerolog.Nop(),
	}
	c.getClient.Timeout = defaultTimeout
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, "/auth/login", "", LoginRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns a token and profile.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, "/auth/register", "", RegisterRequest{FullName: fullName, Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Me fetches the authenticated profile.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	if err := c.do(ctx, c.getClient, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the token server-side. Callers treat failure as
// best-effort: local state is cleared regardless.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, c.httpClient, http.MethodPost, "/auth/logout", token, nil, nil)
}

// InitializeDirectPayment creates a pending transaction and returns the
// payment reference for the checkout handoff.
func (c *Client) InitializeDirectPayment(ctx context.Context, token string, req InitializePaymentRequest) (*PaymentReference, error) {
	var out initializePaymentResponse
	err := c.do(ctx, c.httpClient, http.MethodPost, "/transactions/initialize-direct-payment", token, req, &out)
	if err != nil {
		return nil, err
	}
	if out.Data.Reference == "" {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "backend returned no payment reference"}
	}
	return &out.Data, nil
}

// VerifyPayment asks the backend to confirm a captured payment reference
// and finalize the transaction.
func (c *Client) VerifyPayment(ctx context.Context, token, reference, serviceType string) (*VerifyPaymentResult, error) {
	path := fmt.Sprintf("/transactions/verify-payment/%s?type=%s", url.PathEscape(reference), url.QueryEscape(serviceType))
	var out VerifyPaymentResult
	if err := c.do(ctx, c.httpClient, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Purchase performs a wallet-funded purchase for the given service type
// (airtime, data, tv, electricity).
func (c *Client) Purchase(ctx context.Context, token, serviceType string, req PurchaseRequest) (*PurchaseResult, error) {
	var out PurchaseResult
	if err := c.do(ctx, c.httpClient, http.MethodPost, "/transactions/"+serviceType, token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyElectricity resolves a meter number to the customer on record.
func (c *Client) VerifyElectricity(ctx context.Context, token, provider, meterNumber, meterType string) (*Customer, error) {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("meterNumber", meterNumber)
	q.Set("meterType", meterType)
	var out Customer
	if err := c.do(ctx, c.getClient, http.MethodGet, "/transactions/verify-electricity?"+q.Encode(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTVCard resolves a smartcard number to the customer on record.
func (c *Client) VerifyTVCard(ctx context.Context, token, provider, smartcardNumber string) (*Customer, error) {
	q := url.Values{}
	q.Set("provider", provider)
	q.Set("smartCardNumber", smartcardNumber)
	var out Customer
	if err := c.do(ctx, c.getClient, http.MethodGet, "/transactions/verify-tv-card?"+q.Encode(), token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balance returns the current wallet balance.
func (c *Client) Balance(ctx context.Context, token string) (*Balance, error) {
	var out Balance
	if err := c.do(ctx, c.getClient, http.MethodGet, "/transactions/balance", token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History returns one page of the transaction history.
func (c *Client) History(ctx context.Context, token string, page int) (*HistoryPage, error) {
	path := fmt.Sprintf("/transactions/history?page=%d", page)
	var out HistoryPage
	if err := c.do(ctx, c.getClient, http.MethodGet, path, token, nil, &out); err != nil {
		return nil, err
	}
	if out.Page == 0 {
		out.Page = page
	}
	return &out, nil
}

// Ping probes backend reachability. Any HTTP response counts as reachable;
// only transport failures report offline.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := hc.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("backend request failed")
		return &ConnectionError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}
	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readErrorMessage extracts the human-readable message from an error body.
// The backend uses both "message" and "error" keys.
func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
