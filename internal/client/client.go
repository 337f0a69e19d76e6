// Package client talks to the fatura JSON API and classifies its failures
// into the sentinel errors of this package.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fatura/internal/api"
	"fatura/internal/log"
	"fatura/internal/session"
)

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenStore
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithTokenStore(ts TokenStore) Option {
	return func(c *Client) { c.tokens = ts }
}

// New returns a client for the API rooted at baseURL. Without a token store
// the session lives in memory.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url must be http or https: %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     &MemoryTokenStore{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Auth

func (c *Client) SignUp(ctx context.Context, req api.SignUpRequest) (api.UserResponse, error) {
	var out api.UserResponse
	_, err := c.do(ctx, http.MethodPost, "/api/cookie/signup", req, &out)
	return out, err
}

// SignIn opens a session and saves its token.
func (c *Client) SignIn(ctx context.Context, req api.SignInRequest) (api.SessionResponse, error) {
	var out api.SessionResponse
	resp, err := c.do(ctx, http.MethodPost, "/api/cookie/signin", req, &out)
	if err != nil {
		return out, err
	}
	return out, c.saveSession(resp, out)
}

func (c *Client) Refresh(ctx context.Context) (api.SessionResponse, error) {
	var out api.SessionResponse
	resp, err := c.do(ctx, http.MethodPost, "/api/cookie/refresh", nil, &out)
	if err != nil {
		return out, err
	}
	return out, c.saveSession(resp, out)
}

// Logout ends the session on the server and forgets the local token even
// when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/cookie/logout", nil, nil)
	if clearErr := c.tokens.Clear(); clearErr != nil {
		return errors.Join(err, clearErr)
	}
	return err
}

func (c *Client) saveSession(resp *http.Response, sess api.SessionResponse) error {
	for _, ck := range resp.Cookies() {
		if ck.Name == session.CookieName && ck.Value != "" {
			return c.tokens.Save(ck.Value, sess.ExpiresAt)
		}
	}
	return fmt.Errorf("%w: response carried no session cookie", ErrServer)
}

func (c *Client) Panel(ctx context.Context) (api.PanelResponse, error) {
	var out api.PanelResponse
	_, err := c.do(ctx, http.MethodGet, "/api/panel", nil, &out)
	return out, err
}

// Cards

func (c *Client) ListCards(ctx context.Context) ([]api.CardDetails, error) {
	var out []api.CardDetails
	_, err := c.do(ctx, http.MethodGet, "/api/creditcard", nil, &out)
	return out, err
}

func (c *Client) GetCard(ctx context.Context, id int64) (api.CardDetails, error) {
	var out api.CardDetails
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/creditcard/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateCard(ctx context.Context, req api.CardRequest) (api.CardDetails, error) {
	var out api.CardDetails
	_, err := c.do(ctx, http.MethodPost, "/api/creditcard", req, &out)
	return out, err
}

func (c *Client) UpdateCard(ctx context.Context, id int64, req api.CardRequest) (api.CardDetails, error) {
	var out api.CardDetails
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/creditcard/%d", id), req, &out)
	return out, err
}

// Purchases

func (c *Client) CreatePurchase(ctx context.Context, req api.PurchaseRequest) (api.PurchaseDetails, error) {
	var out api.PurchaseDetails
	_, err := c.do(ctx, http.MethodPost, "/api/creditcard/purchase", req, &out)
	return out, err
}

func (c *Client) CreateSubscription(ctx context.Context, req api.SubscriptionRequest) (api.PurchaseDetails, error) {
	var out api.PurchaseDetails
	_, err := c.do(ctx, http.MethodPost, "/api/creditcard/subscription", req, &out)
	return out, err
}

func (c *Client) GetPurchase(ctx context.Context, id int64) (api.PurchaseDetails, error) {
	var out api.PurchaseDetails
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/creditcard/purchase/%d", id), nil, &out)
	return out, err
}

func (c *Client) UpdatePurchase(ctx context.Context, id int64, req api.PurchaseRequest) (api.PurchaseDetails, error) {
	var out api.PurchaseDetails
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/creditcard/purchase/update/%d", id), req, &out)
	return out, err
}

func (c *Client) DeletePurchase(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/creditcard/purchase/%d", id), nil, nil)
	return err
}

// Invoices

func (c *Client) GetInvoice(ctx context.Context, id int64) (api.InvoiceDetails, error) {
	var out api.InvoiceDetails
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/creditcard/invoice/%d", id), nil, &out)
	return out, err
}

func (c *Client) CurrentInvoice(ctx context.Context, cardID int64) (api.InvoiceDetails, error) {
	var out api.InvoiceDetails
	_, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/creditcard/%d/invoice/current", cardID), nil, &out)
	return out, err
}

func (c *Client) UpdateEstimateLimit(ctx context.Context, id int64, req api.EstimateLimitRequest) (api.InvoiceStatusResponse, error) {
	var out api.InvoiceStatusResponse
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/creditcard/invoice/%d", id), req, &out)
	return out, err
}

func (c *Client) ChangeInvoiceStatus(ctx context.Context, id int64, status string) (api.InvoiceStatusResponse, error) {
	var out api.InvoiceStatusResponse
	path := fmt.Sprintf("/api/creditcard/invoice/change-status/%d/%s", id, url.PathEscape(status))
	_, err := c.do(ctx, http.MethodPut, path, nil, &out)
	return out, err
}

// do sends one request and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens.Load()
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	slog.DebugContext(ctx, "API call",
		log.FieldComponent, log.ComponentClient,
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out != nil && resp.StatusCode != http.StatusNoContent {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp, fmt.Errorf("%w: decode response: %w", ErrServer, err)
			}
		}
		return resp, nil
	}
	return resp, c.classify(resp)
}

func (c *Client) classify(resp *http.Response) error {
	var body api.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		if err := c.tokens.Clear(); err != nil {
			return errors.Join(ErrUnauthorized, err)
		}
		return ErrUnauthorized
	case code == http.StatusUnprocessableEntity:
		return &ValidationError{Status: code, Message: body.Error, Fields: body.Errors}
	case code == http.StatusConflict:
		return &ValidationError{Status: code, Message: body.Error, Fields: body.Errors}
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, body.Error)
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, body.Error)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: retry after %ss", ErrRateLimited, resp.Header.Get("Retry-After"))
	case code >= 500:
		return fmt.Errorf("%w: %d %s", ErrServer, code, body.Error)
	default:
		return fmt.Errorf("unexpected status %d: %s", code, body.Error)
	}
}
