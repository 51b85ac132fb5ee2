package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service names one backend the back-office talks to. Each service gets its
// own [Client] instance; only the auth service's instance ever refreshes
// tokens on a 401.
type Service string

const (
	// ServiceAuth is the authentication backend.
	ServiceAuth Service = "auth"
	// ServiceSettings is the settings/back-office CRUD backend.
	ServiceSettings Service = "settings"
	// ServiceLogistics is the logistics backend.
	ServiceLogistics Service = "logistics"
)

// TenantHeader carries the tenant identifier on every scoped request.
const TenantHeader = "X-Tenant-ID"

const requestIDHeader = "X-Request-ID"

// TokenSource yields the current access token. It is consulted on every
// request, never cached, so a token refreshed mid-session is picked up on
// the very next call.
type TokenSource func(ctx context.Context) (string, error)

// Refresher performs one token refresh. Installed only on the auth-service
// client; its presence is what arms the 401 replay path.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Result is the uniform unwrapped success envelope.
type Result struct {
	Success   bool
	Data      json.RawMessage
	Message   string
	Timestamp string
}

type successEnvelope struct {
	Success   *bool           `json:"success"`
	Data      json.RawMessage `json:"data"`
	Message   string          `json:"message"`
	Timestamp string          `json:"timestamp"`
}

// Client is a per-service HTTP adapter.
type Client struct {
	service   Service
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	refresher Refresher
	log       zerolog.Logger

	mu       sync.RWMutex
	tenantID string
}

// Option configures a [Client] at construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTokenSource installs the lazy access-token accessor.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRefresher installs the 401 refresh hook. Only meaningful on the
// auth-service client.
func WithRefresher(r Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

// WithTenant sets the initial tenant identifier.
func WithTenant(id string) Option {
	return func(c *Client) { c.tenantID = id }
}

// WithLogger sets the logger used for request-failure diagnostics.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a [Client] for one backend service.
func New(service Service, baseURL string, opts ...Option) *Client {
	c := &Client{
		service: service,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetTenant changes the default tenant header for all subsequent requests
// from this instance.
func (c *Client) SetTenant(id string) {
	c.mu.Lock()
	c.tenantID = id
	c.mu.Unlock()
}

// ClearTenant removes the default tenant header.
func (c *Client) ClearTenant() {
	c.SetTenant("")
}

func (c *Client) tenant() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tenantID
}

type requestOptions struct {
	bearer    string
	noRefresh bool
	retried   bool
}

// RequestOption tweaks a single request.
type RequestOption func(*requestOptions)

// WithBearer overrides the token source for this one request. Used when a
// call must be authenticated with a token that is no longer stored, such as
// the background logout notification.
func WithBearer(token string) RequestOption {
	return func(o *requestOptions) { o.bearer = token }
}

// WithoutRefresh disables the 401 refresh-and-replay path for this request.
// The refresh call itself must use it, otherwise a rejected refresh token
// would recurse into another refresh.
func WithoutRefresh() RequestOption {
	return func(o *requestOptions) { o.noRefresh = true }
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*Result, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil, buildOptions(opts))
}

// Post issues a POST request with a JSON payload.
func (c *Client) Post(ctx context.Context, endpoint string, payload any, opts ...RequestOption) (*Result, error) {
	return c.do(ctx, http.MethodPost, endpoint, payload, buildOptions(opts))
}

// Put issues a PUT request with a JSON payload.
func (c *Client) Put(ctx context.Context, endpoint string, payload any, opts ...RequestOption) (*Result, error) {
	return c.do(ctx, http.MethodPut, endpoint, payload, buildOptions(opts))
}

// Patch issues a PATCH request with a JSON payload.
func (c *Client) Patch(ctx context.Context, endpoint string, payload any, opts ...RequestOption) (*Result, error) {
	return c.do(ctx, http.MethodPatch, endpoint, payload, buildOptions(opts))
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*Result, error) {
	return c.do(ctx, http.MethodDelete, endpoint, nil, buildOptions(opts))
}

func buildOptions(opts []RequestOption) requestOptions {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, opts requestOptions) (*Result, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Code: CodeValidation, Message: fmt.Sprintf("encode payload: %v", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	if tenant := c.tenant(); tenant != "" {
		req.Header.Set(TenantHeader, tenant)
	}

	bearer := opts.bearer
	if bearer == "" && c.tokens != nil {
		// Read lazily on every request so a refreshed token is picked up
		// without rebuilding the client.
		if t, tokenErr := c.tokens(ctx); tokenErr == nil {
			bearer = t
		}
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		apiErr := classifyTransport(err)
		c.log.Debug().Str("service", string(c.service)).Str("endpoint", endpoint).
			Str("code", string(apiErr.Code)).Msg("request transport failure")
		return nil, apiErr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: CodeNetwork, Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode == http.StatusUnauthorized &&
		c.service == ServiceAuth && c.refresher != nil &&
		!opts.noRefresh && !opts.retried {
		if refreshErr := c.refresher.Refresh(ctx); refreshErr != nil {
			return nil, classifyResponse(resp.StatusCode, raw)
		}
		opts.retried = true
		return c.do(ctx, method, endpoint, payload, opts)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := classifyResponse(resp.StatusCode, raw)
		c.log.Debug().Str("service", string(c.service)).Str("endpoint", endpoint).
			Int("status", resp.StatusCode).Str("code", string(apiErr.Code)).Msg("request failed")
		return nil, apiErr
	}

	var env successEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Success == nil {
		// Not the standard envelope; treat the whole body as the payload.
		return &Result{
			Success:   true,
			Data:      json.RawMessage(raw),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}, nil
	}

	res := &Result{
		Success:   *env.Success,
		Data:      env.Data,
		Message:   env.Message,
		Timestamp: env.Timestamp,
	}
	if res.Timestamp == "" {
		res.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	return res, nil
}
