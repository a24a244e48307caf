package apiclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/rs/zerolog/log"
)

const (
	DefaultRefreshPath    = "/hr/auth/refresh"
	defaultRefreshTimeout = 10 * time.Second
	requestIDHeader       = "X-Request-ID"
)

// SessionExpiredFunc is called once per failed refresh, after the session
// has been cleared. It is where the application sends the user back to login.
type SessionExpiredFunc func(err error)

// Client calls the HR API with the stored bearer token and recovers from an
// expired access token by refreshing it once for all concurrent callers.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	store          *sessions.Store
	refreshPath    string
	refreshTimeout time.Duration
	onExpired      SessionExpiredFunc
	metrics        *Metrics

	lock       sync.Mutex
	refreshing bool
	queue      []*pendingRequest
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRefreshTimeout bounds the refresh call. Requests queued behind the
// refresh fail with it when the timeout expires.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

func WithSessionExpiredHandler(fn SessionExpiredFunc) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(baseURL string, store *sessions.Store, opts ...Option) *Client {
	c := &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		store:          store,
		refreshPath:    DefaultRefreshPath,
		refreshTimeout: defaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req with the current bearer token. A 401 is answered by refreshing
// the session and sending req once more; every other failure is returned
// unchanged. Non-2xx responses are returned as *APIError.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, apperrors.ErrInvalidRequest
	}

	var session *sessions.Session
	if !req.SkipAuth {
		rec, err := c.store.Load(ctx)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			session = rec.Session
		}
	}

	a := &attempt{req: req}
	resp, err := c.send(ctx, a, session)
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, a, resp)
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	req, err := NewRequest(method, path, body)
	if err != nil {
		return err
	}
	req.Query = query

	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// send performs one round trip. session may be nil for unauthenticated calls.
func (c *Client) send(ctx context.Context, a *attempt, session *sessions.Session) (*Response, error) {
	httpReq, err := a.req.build(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	httpReq.Header.Set(requestIDHeader, requestID)

	a.token = ""
	if session != nil && session.AccessToken != "" && !a.req.SkipAuth {
		session.Token().SetAuthHeader(httpReq)
		a.token = session.AccessToken
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("[apiclient] %s %s: %w", httpReq.Method, a.req.Path, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient] read %s %s: %w", httpReq.Method, a.req.Path, err)
	}

	log.Debug().
		Str("method", httpReq.Method).
		Str("path", a.req.Path).
		Str("request_id", requestID).
		Int("status", httpResp.StatusCode).
		Bool("retried", a.retried).
		Dur("duration", time.Since(start)).
		Msg("API request")

	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) complete(ctx context.Context, a *attempt, resp *Response) (*Response, error) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp, nil
	case resp.StatusCode == http.StatusUnauthorized && !a.req.SkipAuth:
		return c.handleUnauthorized(ctx, a, resp)
	default:
		return nil, newAPIError(resp)
	}
}
