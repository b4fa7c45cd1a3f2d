package client

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/channel"
	"github.com/dmitrijs2005/gophstream/internal/dh"
	"github.com/dmitrijs2005/gophstream/internal/logging"
	"github.com/dmitrijs2005/gophstream/internal/suite"
	"github.com/hashicorp/go-retryablehttp"
)

// Options configures a Client. Zero values fall back to the defaults of
// go-retryablehttp.
type Options struct {
	BaseURL      string
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
	Logger       logging.Logger
	// Transport replaces the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to one streaming server over one session.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  logging.Logger

	mu        sync.RWMutex
	params    *dh.Parameters
	sessionID string
	secret    []byte
	channel   *channel.Channel
}

func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	logger = logger.With("module", "client")

	rc := retryablehttp.NewClient()
	if opts.RetryMax > 0 {
		rc.RetryMax = opts.RetryMax
	}
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	if opts.Transport != nil {
		rc.HTTPClient.Transport = opts.Transport
	}
	rc.Logger = leveledLogger{l: logger}
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    rc,
		logger:  logger,
	}
}

// checkRetry retries what go-retryablehttp retries, except plain 500s:
// those carry a structured error and repeating the request will not help.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.StatusCode == http.StatusInternalServerError {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// SessionID returns the id of the current session, or "" before Connect.
func (c *Client) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// Suite returns the negotiated suite, or nil.
func (c *Client) Suite() *suite.Suite {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.channel == nil {
		return nil
	}
	return c.channel.Suite()
}

func (c *Client) sealedChannel() (string, *channel.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sessionID == "" {
		return "", nil, ErrNotConnected
	}
	if c.channel == nil {
		return "", nil, ErrNotNegotiated
	}
	return c.sessionID, c.channel, nil
}

// leveledLogger feeds go-retryablehttp's log lines into logging.Logger.
type leveledLogger struct {
	l logging.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.l.Error(context.Background(), msg, keysAndValues...)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.l.Debug(context.Background(), msg, keysAndValues...)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.l.Debug(context.Background(), msg, keysAndValues...)
}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.l.Warn(context.Background(), msg, keysAndValues...)
}
