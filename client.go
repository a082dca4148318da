package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/feishudocs/feishu.go/pkg/constants"
	"github.com/feishudocs/feishu.go/pkg/retry"
)

// Client wraps the Feishu Open Platform REST API. All methods are safe for
// concurrent use; the only shared mutable state is the cached credential,
// which the token manager guards.
type Client struct {
	BaseURL  string
	AuthType AuthType

	http   *http.Client
	tokens *TokenManager
	log    zerolog.Logger
	retry  retry.Config
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the endpoint root, e.g. to point at a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.BaseURL = u }
}

// WithHTTPClient replaces the underlying HTTP client, including its timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger attaches a logger; request and response lines are emitted at
// debug level.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithRetry replaces the rate-limit retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithAuthType selects tenant or user authentication for all calls.
func WithAuthType(at AuthType) Option {
	return func(c *Client) { c.AuthType = at }
}

// New creates a Client authenticating with the given app credentials.
func New(appID, appSecret string, opts ...Option) (*Client, error) {
	if appID == "" || appSecret == "" {
		return nil, constants.ErrNoAppCredentials
	}

	c := &Client{
		BaseURL:  constants.DefaultBaseURL,
		AuthType: AuthTenant,
		http:     &http.Client{Timeout: constants.DefaultTimeout},
		log:      zerolog.Nop(),
		retry:    retry.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.BaseURL == "" {
		return nil, constants.ErrNoBaseURL
	}

	c.tokens = NewTokenManager(appID, appSecret, c.BaseURL, c.http)
	return c, nil
}

// Tokens exposes the token manager, e.g. to run the OAuth code exchange for
// user-mode authentication.
func (c *Client) Tokens() *TokenManager {
	return c.tokens
}

// envelope is the fixed response shape of every endpoint: code 0 signals
// success, anything else is translated into the error taxonomy.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// do performs an authorized JSON call. Rate-limited responses are retried
// with exponential backoff; a token-expired response invalidates the cached
// credential and retries the originating call exactly once. Everything else
// propagates unmodified.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "marshal request body")
		}
	}
	return c.doRaw(ctx, method, path, query, "application/json", raw, out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out any) error {
	err := c.doWithBackoff(ctx, method, path, query, contentType, body, out)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindAuth && isTokenCode(apiErr.Code) {
		c.log.Debug().Int("code", apiErr.Code).Msg("token rejected, refreshing and retrying once")
		c.tokens.Invalidate(c.AuthType)
		err = c.doWithBackoff(ctx, method, path, query, contentType, body, out)
	}
	return err
}

func (c *Client) doWithBackoff(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out any) error {
	return retry.Do(ctx, c.retry, func() error {
		err := c.doOnce(ctx, method, path, query, contentType, body, out)
		if IsRateLimit(err) {
			return retry.Retryable(err)
		}
		return err
	})
}

func (c *Client) doOnce(ctx context.Context, method, path string, query url.Values, contentType string, body []byte, out any) error {
	token, err := c.tokens.Token(ctx, c.AuthType)
	if err != nil {
		return err
	}

	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	c.log.Debug().Str("method", method).Str("path", path).Msg("feishu request")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode == http.StatusTooManyRequests {
			return &APIError{Kind: KindRateLimit, HTTPStatus: resp.StatusCode, Msg: http.StatusText(resp.StatusCode)}
		}
		return errors.Wrap(constants.ErrInvalidResponse, err.Error())
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("code", env.Code).
		Dur("elapsed", time.Since(start)).
		Msg("feishu response")

	if env.Code != constants.CodeOK {
		return classifyCode(resp.StatusCode, env.Code, env.Msg)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return errors.Wrap(err, "decode response data")
		}
	}
	return nil
}
