package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"github.com/rs/zerolog/log"
)

// attempt carries the retry mark alongside the caller's request so the
// request itself is never modified.
type attempt struct {
	req     *Request
	retried bool
	token   string // access token the last send carried
}

type result struct {
	resp *Response
	err  error
}

// pendingRequest is a caller parked behind an in-flight refresh.
type pendingRequest struct {
	ctx     context.Context
	attempt *attempt
	done    chan result // buffered, written exactly once
}

func (p *pendingRequest) wait() (*Response, error) {
	select {
	case r := <-p.done:
		return r.resp, r.err
	case <-p.ctx.Done():
		return nil, p.ctx.Err()
	}
}

// Refreshing reports whether a refresh call is in flight.
func (c *Client) Refreshing() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.refreshing
}

// PendingRequests returns how many callers are waiting for the in-flight
// refresh.
func (c *Client) PendingRequests() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.queue)
}

func (c *Client) handleUnauthorized(ctx context.Context, a *attempt, resp *Response) (*Response, error) {
	if a.retried {
		return nil, newAPIError(resp)
	}
	a.retried = true

	p := &pendingRequest{ctx: ctx, attempt: a, done: make(chan result, 1)}
	c.lock.Lock()
	if c.refreshing {
		c.queue = append(c.queue, p)
		c.lock.Unlock()
		c.metrics.queued()
		return p.wait()
	}
	c.refreshing = true
	c.lock.Unlock()

	// The leader waits like any queued caller, so its own cancellation
	// returns at once while the refresh carries on for the others.
	go c.refreshAndReplay(ctx, p)
	return p.wait()
}

// refreshAndReplay settles every caller, leader last. Subscribers hear about
// a new session only once the client is idle again, so they may issue
// requests of their own.
func (c *Client) refreshAndReplay(ctx context.Context, leader *pendingRequest) {
	session, rotated, queue, err := c.runRefresh(ctx, leader.attempt.token)
	queue = append(queue, leader)

	next := 0
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Replay after refresh panicked")
			for _, p := range queue[next:] {
				p.done <- result{err: fmt.Errorf("%w: panic: %v", apperrors.ErrRefreshFailed, r)}
			}
		}
	}()

	if err != nil {
		if !errors.Is(err, apperrors.ErrSessionEnded) {
			c.expireSession(ctx, err)
		}
		for ; next < len(queue); next++ {
			queue[next].done <- result{err: err}
		}
		return
	}

	if rotated {
		c.store.Notify()
	}
	for ; next < len(queue); next++ {
		p := queue[next]
		if p.ctx.Err() != nil {
			p.done <- result{err: p.ctx.Err()}
			continue
		}
		resp, err := c.replay(p.ctx, p.attempt, session)
		p.done <- result{resp: resp, err: err}
	}
}

// runRefresh obtains a usable session. However it ends, panics included, the
// queue is handed back and the client is idle again before it returns.
func (c *Client) runRefresh(ctx context.Context, sentToken string) (session *sessions.Session, rotated bool, queue []*pendingRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			session, rotated = nil, false
			err = fmt.Errorf("%w: panic: %v", apperrors.ErrRefreshFailed, r)
		}
		queue = c.drain()
		if rotated || err != nil {
			c.observeRefresh(err)
		}
	}()

	session, rotated, err = c.refresh(ctx, sentToken)
	return session, rotated, nil, err
}

func (c *Client) drain() []*pendingRequest {
	c.lock.Lock()
	defer c.lock.Unlock()

	queue := c.queue
	c.queue = nil
	c.refreshing = false
	return queue
}

func (c *Client) replay(ctx context.Context, a *attempt, session *sessions.Session) (*Response, error) {
	c.metrics.replayed()
	resp, err := c.send(ctx, a, session)
	if err != nil {
		return nil, err
	}
	return c.complete(ctx, a, resp)
}

// refresh exchanges the stored refresh token for a new session and persists
// it without announcing it. When the store already holds a different access
// token than sentToken, that session is returned as is and rotated is false.
// The call is detached from the caller's cancellation: other callers depend
// on its outcome.
func (c *Client) refresh(ctx context.Context, sentToken string) (session *sessions.Session, rotated bool, err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	rec, err := c.store.Load(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}
	if rec != nil && rec.Session.AccessToken != sentToken {
		log.Debug().Msg("Session changed while the request was in flight, replaying without refresh")
		return rec.Session, false, nil
	}
	if rec == nil || rec.Session.RefreshToken == "" {
		return nil, false, apperrors.ErrNoRefreshToken
	}
	refreshToken := rec.Session.RefreshToken

	session, err = c.requestRefresh(ctx, refreshToken)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}
	if session.RefreshToken == "" {
		session.RefreshToken = refreshToken
	}

	ok, err := c.store.SwapSession(ctx, refreshToken, session)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", apperrors.ErrRefreshFailed, err)
	}
	if !ok {
		return nil, false, apperrors.ErrSessionEnded
	}
	return session, true, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshData struct {
	Session *sessions.Session `json:"session"`
}

func (c *Client) requestRefresh(ctx context.Context, refreshToken string) (*sessions.Session, error) {
	req, err := NewRequest(http.MethodPost, c.refreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, err
	}
	req.SkipAuth = true

	resp, err := c.send(ctx, &attempt{req: req}, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}

	var data refreshData
	if err := resp.Decode(&data); err != nil {
		return nil, err
	}
	if data.Session == nil || data.Session.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh returned no session", apperrors.ErrInvalidResponse)
	}
	return data.Session, nil
}

func (c *Client) expireSession(ctx context.Context, cause error) {
	log.Warn().Err(cause).Msg("Session could not be refreshed, signing out")
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		log.Err(err).Msg("Failed to clear session after refresh failure")
	}
	c.metrics.expired()
	if c.onExpired != nil {
		c.onExpired(cause)
	}
}

func (c *Client) observeRefresh(err error) {
	switch {
	case err == nil:
		log.Info().Msg("Access token refreshed")
		c.metrics.refresh("success")
	case errors.Is(err, apperrors.ErrNoRefreshToken):
		c.metrics.refresh("no_refresh_token")
	case errors.Is(err, apperrors.ErrSessionEnded):
		log.Info().Msg("Discarding refreshed session, user signed out meanwhile")
		c.metrics.refresh("session_ended")
	default:
		c.metrics.refresh("failure")
	}
}
