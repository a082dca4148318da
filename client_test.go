package feishu

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feishudocs/feishu.go/internal/fakelark"
	"github.com/feishudocs/feishu.go/pkg/constants"
	"github.com/feishudocs/feishu.go/pkg/logger"
	"github.com/feishudocs/feishu.go/pkg/retry"
)

// fastRetry keeps backoff short enough for tests while preserving the
// doubling shape.
func fastRetry() retry.Config {
	return retry.Config{
		MaxAttempts: 5,
		InitialWait: 20 * time.Millisecond,
		MaxWait:     time.Second,
		Multiplier:  2.0,
	}
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakelark.Server) {
	t.Helper()

	srv := fakelark.NewServer()
	t.Cleanup(srv.Close)

	opts = append([]Option{WithBaseURL(srv.URL()), WithRetry(fastRetry())}, opts...)
	c, err := New("test-app", "test-secret", opts...)
	require.NoError(t, err)
	return c, srv
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New("", "")
	assert.ErrorIs(t, err, constants.ErrNoAppCredentials)

	_, err = New("app", "")
	assert.ErrorIs(t, err, constants.ErrNoAppCredentials)
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	_, err := New("app", "secret", WithBaseURL(""))
	assert.ErrorIs(t, err, constants.ErrNoBaseURL)
}

func TestRateLimitedCallRetriesWithBackoff(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	srv.Script(http.MethodGet, "/docx/v1/documents/",
		fakelark.ScriptedResponse{Status: http.StatusTooManyRequests, Code: constants.CodeTooManyRequests, Msg: "rate limited"},
		fakelark.ScriptedResponse{Status: http.StatusTooManyRequests, Code: constants.CodeTooManyRequests, Msg: "rate limited"},
	)

	info, err := c.GetDocumentInfo(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, docID, info.DocumentID)
	assert.Equal(t, 3, srv.RequestCount(http.MethodGet, "/docx/v1/documents/"))

	// The gap before each retry must honor the doubling schedule.
	var times []time.Time
	for _, r := range srv.Requests() {
		if r.Method == http.MethodGet {
			times = append(times, r.At)
		}
	}
	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 40*time.Millisecond)
}

func TestRateLimitBudgetExhausted(t *testing.T) {
	cfg := fastRetry()
	cfg.MaxAttempts = 2
	c, srv := newTestClient(t, WithRetry(cfg))
	docID := srv.AddDocument("doc")

	for range 5 {
		srv.Script(http.MethodGet, "/docx/v1/documents/",
			fakelark.ScriptedResponse{Status: http.StatusTooManyRequests, Code: constants.CodeTooManyRequests, Msg: "rate limited"})
	}

	_, err := c.GetDocumentInfo(context.Background(), docID)
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))
	assert.Equal(t, 2, srv.RequestCount(http.MethodGet, "/docx/v1/documents/"))
}

func TestExpiredTokenRefreshedOnce(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	_, err := c.GetDocumentInfo(context.Background(), docID)
	require.NoError(t, err)
	require.Equal(t, 1, srv.TokenFetches())

	// The server forgets the token while the client still thinks it is live.
	srv.ExpireTokens()

	info, err := c.GetDocumentInfo(context.Background(), docID)
	require.NoError(t, err)
	assert.Equal(t, docID, info.DocumentID)
	assert.Equal(t, 2, srv.TokenFetches())
}

func TestPersistentAuthFailurePropagates(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")

	_, err := c.GetDocumentInfo(context.Background(), docID)
	require.NoError(t, err)

	srv.ExpireTokens()
	srv.Script(http.MethodPost, "/auth/v3/tenant_access_token/internal",
		fakelark.ScriptedResponse{Code: 99991671, Msg: "app disabled"})

	_, err = c.GetDocumentInfo(context.Background(), docID)
	require.Error(t, err)
	assert.True(t, IsAuth(err))
}

func TestTransportErrorNotRetried(t *testing.T) {
	srv := fakelark.NewServer()
	url := srv.URL()
	srv.Close()

	c, err := New("app", "secret", WithBaseURL(url), WithRetry(fastRetry()))
	require.NoError(t, err)

	_, err = c.GetDocumentInfo(context.Background(), "whatever")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
}

func TestMalformedEnvelope(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")
	srv.Script(http.MethodGet, "/docx/v1/documents/",
		fakelark.ScriptedResponse{Body: []byte("<html>gateway error</html>")})

	_, err := c.GetDocumentInfo(context.Background(), docID)
	require.Error(t, err)
	assert.ErrorIs(t, err, constants.ErrInvalidResponse)
}

func TestRemoteErrorKeepsCodeAndMessage(t *testing.T) {
	c, srv := newTestClient(t)
	docID := srv.AddDocument("doc")
	srv.Script(http.MethodGet, "/docx/v1/documents/",
		fakelark.ScriptedResponse{Code: 1770013, Msg: "no permission"})

	_, err := c.GetDocumentInfo(context.Background(), docID)
	require.Error(t, err)
	assert.True(t, IsPermission(err))
	assert.Contains(t, err.Error(), "1770013")
	assert.Contains(t, err.Error(), "no permission")
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logData, err := logger.New().FromBuffer(&buf).WithLevel(zerolog.DebugLevel).Make()
	require.NoError(t, err)

	c, srv := newTestClient(t, WithLogger(logData.Logger))
	docID := srv.AddDocument("doc")

	_, err = c.GetDocumentInfo(context.Background(), docID)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "feishu request")
	assert.Contains(t, out, "feishu response")
	assert.Contains(t, out, docID)
}
