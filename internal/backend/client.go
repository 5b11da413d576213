package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"forex-journal/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxRetries = 3

var (
	// ErrUnauthorized is returned when the backend rejects the caller's token.
	ErrUnauthorized = errors.New("not authenticated")
)

// APIError is a non-retryable error response from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// Client talks to a Supabase-compatible backend: GoTrue for auth under
// /auth/v1 and PostgREST for tables under /rest/v1.
type Client struct {
	client      *resty.Client
	anonKey     string
	logger      *zap.Logger
	limiter     *rate.Limiter
	baseBackoff time.Duration
}

// NewClient creates a backend client from configuration.
func NewClient(cfg *config.Backend, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("apikey", cfg.AnonKey).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client:      client,
		anonKey:     cfg.AnonKey,
		logger:      logger,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
		baseBackoff: time.Second,
	}
}

type authKey struct{}

type authInfo struct {
	token string
	user  User
}

// WithAuth attaches the caller's access token and user to ctx. Requests
// made with that context act on the user's behalf.
func WithAuth(ctx context.Context, token string, user User) context.Context {
	return context.WithValue(ctx, authKey{}, authInfo{token: token, user: user})
}

func authFrom(ctx context.Context) (authInfo, bool) {
	info, ok := ctx.Value(authKey{}).(authInfo)
	return info, ok && info.token != ""
}

// request builds a request bound to ctx and authorised with the caller's
// token, or the anon key when there is none.
func (c *Client) request(ctx context.Context) *resty.Request {
	bearer := c.anonKey
	if info, ok := authFrom(ctx); ok {
		bearer = info.token
	}
	return c.client.R().
		SetContext(ctx).
		SetAuthToken(bearer)
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && resp.StatusCode() != 0 {
			statusCode := resp.StatusCode()
			switch {
			case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
				return nil, fmt.Errorf("%w: %s", ErrUnauthorized, resp.String())
			case statusCode == http.StatusTooManyRequests:
				shouldRetry = true
				if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			case statusCode >= 500:
				shouldRetry = true
			}
		} else {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}
		if i == maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// Exponential backoff: 1x, 2x, 4x
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.baseBackoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err == nil && resp != nil {
		err = &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}
