package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Request is the JSON body posted to the webhook.
type Request struct {
	Message     string `json:"message"`
	Instruction string `json:"instruction,omitempty"`
}

// Response is a successful (2xx) webhook reply. Its shape is not controlled
// by this service.
type Response struct {
	StatusCode int
	Body       []byte
}

// Options configures a Client.
type Options struct {
	URL       string
	Timeout   time.Duration
	Retries   int
	RateLimit float64
	RateBurst int
	RetryWait time.Duration
}

// Client posts prompts to the automation webhook.
type Client struct {
	url     string
	timeout time.Duration
	http    *resty.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient builds a Client. A non-positive RateLimit disables rate limiting.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		url:     opts.URL,
		timeout: opts.Timeout,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}

	c.http = resty.New().
		SetLogger(logger.Sugar()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json, text/plain, */*").
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(4 * opts.RetryWait).
		AddRetryCondition(isTransient).
		AddRetryHook(func(res *resty.Response, err error) {
			status := 0
			if res != nil {
				status = res.StatusCode()
			}
			c.logger.Warn("retrying webhook call", zap.Int("status", status), zap.Error(err))
		})

	return c
}

func isTransient(res *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	return res != nil && res.StatusCode() >= 500
}

// Send posts req and returns the body of a 2xx reply. The configured timeout
// bounds the call including its retry.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, transportError(fmt.Errorf("rate limit wait: %w", err))
	}

	start := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(c.url)
	if err != nil {
		werr := transportError(err)
		c.logger.Warn("webhook call failed",
			zap.String("kind", string(werr.Kind)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, werr
	}

	if !res.IsSuccess() {
		c.logger.Warn("webhook returned error status",
			zap.Int("status", res.StatusCode()),
			zap.Int("bodyBytes", len(res.Body())))
		return nil, statusError(res.StatusCode(), res.Body())
	}

	c.logger.Debug("webhook call succeeded",
		zap.Int("status", res.StatusCode()),
		zap.Duration("elapsed", time.Since(start)))
	return &Response{StatusCode: res.StatusCode(), Body: res.Body()}, nil
}

// Ping issues a single GET against the webhook URL and returns the status code.
func (c *Client) Ping(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := resty.NewWithClient(c.http.GetClient()).R().SetContext(ctx).Get(c.url)
	if err != nil {
		return 0, transportError(err)
	}
	return res.StatusCode(), nil
}
