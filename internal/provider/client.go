// Package provider talks to the move, benchmark and report endpoints over HTTP.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/domain"
	"github.com/park285/chess-arena/pkg/chessdto"
)

const (
	PathMove          = "/move"
	PathReferenceMove = "/stockfish_move"
	PathHeadToHead    = "/h2h"
	PathSaveLog       = "/save_log"
	PathCharts        = "/generate_charts"
)

type Client struct {
	baseURL string
	http    *fasthttp.Client
	logger  *zap.Logger

	defaultTimeout time.Duration
	retryMax       int
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.defaultTimeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.http.MaxConnsPerHost = n
		}
	}
}

// WithRetry bounds attempts for report endpoints. Move requests are never
// retried.
func WithRetry(max int) Option {
	return func(c *Client) { c.retryMax = max }
}

func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 2 * time.Minute, WriteTimeout: 10 * time.Second, MaxConnsPerHost: 16},
		logger:         zap.NewNop(),
		defaultTimeout: 60 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) LocalMove(ctx context.Context, req chessdto.MoveRequest) (chessdto.MoveResponse, error) {
	var resp chessdto.MoveResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, PathMove, req, &resp, false)
	return resp, err
}

func (c *Client) ReferenceMove(ctx context.Context, req chessdto.ReferenceMoveRequest) (chessdto.MoveResponse, error) {
	var resp chessdto.MoveResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, PathReferenceMove, req, &resp, false)
	return resp, err
}

func (c *Client) HeadToHead(ctx context.Context, req chessdto.HeadToHeadRequest) (chessdto.HeadToHeadResponse, error) {
	var resp chessdto.HeadToHeadResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, PathHeadToHead, req, &resp, false)
	return resp, err
}

// SaveLog submits one game log and returns the stored filename.
func (c *Client) SaveLog(ctx context.Context, req chessdto.SaveLogRequest) (string, error) {
	var resp chessdto.SaveLogResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, PathSaveLog, req, &resp, true); err != nil {
		return "", err
	}
	if resp.Filename == "" {
		return "", &domain.ProviderError{Endpoint: PathSaveLog, Err: errors.New("empty filename")}
	}
	return resp.Filename, nil
}

func (c *Client) GenerateCharts(ctx context.Context, req chessdto.ChartRequest) error {
	var resp chessdto.ChartResponse
	if err := c.doJSON(ctx, fasthttp.MethodPost, PathCharts, req, &resp, true); err != nil {
		return err
	}
	if !resp.Success {
		return &domain.ProviderError{Endpoint: PathCharts, Err: chessdto.DomainError{Message: resp.Error}}
	}
	return nil
}

// ChartURL returns a cache-busted URL for a generated chart image.
func (c *Client) ChartURL(name string, at time.Time) string {
	return fmt.Sprintf("%s/static/charts/%s?t=%d", c.baseURL, strings.TrimLeft(name, "/"), at.UnixMilli())
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, out any, retry bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	url := c.baseURL + path
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(url)
	req.Header.SetContentType("application/json")

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	attempts := 1
	if retry {
		attempts = c.retryMax
		if attempts <= 0 {
			attempts = 1
		}
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		deadline := c.computeDeadline(ctx)
		err := c.http.DoDeadline(req, resp, deadline)
		if err != nil {
			lastErr = &domain.ProviderError{Endpoint: path, Err: fmt.Errorf("request failed: %w", err)}
			if attempt == attempts {
				return lastErr
			}
			c.logger.Warn("provider_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		status := resp.StatusCode()
		if status < 200 || status >= 300 {
			lastErr = &domain.ProviderError{Endpoint: path, Err: statusError(status, resp.Body())}
			if attempt == attempts || !shouldRetryStatus(status) {
				return lastErr
			}
			if sleepErr := c.sleepWithContext(ctx, backoffDuration(attempt)); sleepErr != nil {
				return lastErr
			}
			continue
		}

		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return &domain.ProviderError{Endpoint: path, Err: fmt.Errorf("decode response: %w", err)}
			}
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return lastErr
}

// statusError prefers the provider's {error} envelope over the raw body.
func statusError(status int, body []byte) error {
	var envelope chessdto.DomainError
	if json.Unmarshal(body, &envelope) == nil && envelope.Message != "" {
		envelope.Code = fmt.Sprintf("http_%d", status)
		envelope.Retryable = shouldRetryStatus(status)
		return envelope
	}
	return fmt.Errorf("status=%d body=%s", status, truncate(string(body), 512))
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	if dl, ok := ctx.Deadline(); ok {
		clientDL := time.Now().Add(c.defaultTimeout)
		if dl.Before(clientDL) {
			return dl
		}
		return clientDL
	}
	return time.Now().Add(c.defaultTimeout)
}

func (c *Client) sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	base := 100 * time.Millisecond
	return time.Duration(1<<uint(attempt-1)) * base
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
