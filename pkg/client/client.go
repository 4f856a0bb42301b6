package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/valyala/fasthttp"

	"trendsheet-go/pkg/logger"
	"trendsheet-go/pkg/retry"
	"trendsheet-go/pkg/trends"
)

// Config configures the trend service client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Retry     retry.Policy
}

// CoarsePolicy is the client-leg retry policy: few attempts, long waits,
// sized for a cold-starting free-tier server.
func CoarsePolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:       4,
		BaseDelay:         15 * time.Second,
		BackoffMultiplier: 2.0,
		RateLimitCooldown: 2 * time.Minute,
		CooldownJitter:    15 * time.Second,
		InitialJitter:     5 * time.Second,
	}
}

// HealthStatus is the server's /health payload.
type HealthStatus struct {
	Status    string          `json:"status"`
	Libraries map[string]bool `json:"libraries"`
}

// Ready reports whether the server and all of its dependencies are up.
func (h *HealthStatus) Ready() bool {
	if h.Status != "healthy" {
		return false
	}
	for _, ok := range h.Libraries {
		if !ok {
			return false
		}
	}
	return true
}

// Client talks to the trend fetch service.
type Client struct {
	config  Config
	httpc   *fasthttp.Client
	retrier *retry.Controller
	sleep   func(ctx context.Context, d time.Duration) error
	log     *logger.Logger
}

// New creates a client for the service at config.BaseURL.
func New(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "trendsheet-go-client/1.0"
	}
	if config.Retry.MaxAttempts == 0 {
		config.Retry = CoarsePolicy()
	}

	return &Client{
		config: config,
		httpc: &fasthttp.Client{
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 90 * time.Second,
		},
		retrier: retry.New(config.Retry),
		sleep:   sleepCtx,
		log:     logger.GetLogger().WithField("component", "trend_client"),
	}
}

// Health fetches the server's health report.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	status, body, err := c.get("/health")
	if err != nil {
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	if status != fasthttp.StatusOK && status != fasthttp.StatusServiceUnavailable {
		return nil, fmt.Errorf("health endpoint returned status %d", status)
	}

	var health HealthStatus
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &health, nil
}

// EnsureReady probes /health until the server reports ready, waiting out
// a cold start: 30 seconds after the first failed probe, 15 after later
// ones, three probes total.
func (c *Client) EnsureReady(ctx context.Context) error {
	const maxProbes = 3

	var lastErr error
	for probe := 1; probe <= maxProbes; probe++ {
		health, err := c.Health(ctx)
		if err == nil && health.Ready() {
			c.log.Info("Server is ready")
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("server reports %q with libraries %v", health.Status, health.Libraries)
		}

		c.log.WithFields(map[string]interface{}{
			"probe":      probe,
			"max_probes": maxProbes,
		}).WithError(lastErr).Warn("Server not ready")

		if probe < maxProbes {
			wait := 15 * time.Second
			if probe == 1 {
				// First failure usually means a cold start in progress.
				wait = 30 * time.Second
			}
			c.log.WithField("wait", wait.String()).Info("Waiting for server to come up")
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("server did not become ready: %w", lastErr)
}

// Warmup touches the liveness and health endpoints to wake a sleeping
// deployment. Errors are reported, not fatal.
func (c *Client) Warmup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if status, _, err := c.get("/"); err != nil {
		return fmt.Errorf("warmup ping failed: %w", err)
	} else {
		c.log.WithField("status", status).Debug("Liveness endpoint responded")
	}
	_, err := c.Health(ctx)
	return err
}

// TrendRequest is the wire form of a fetch request.
type TrendRequest struct {
	Keywords  []string `json:"keywords"`
	Timeframe string   `json:"timeframe"`
	Frequency string   `json:"frequency"`
	Geo       string   `json:"geo"`
}

// FetchTrend posts the query to /trend under the coarse retry policy and
// decodes the result into a series with the request's column order.
func (c *Client) FetchTrend(ctx context.Context, q trends.TrendQuery) (*trends.TrendSeries, error) {
	var series *trends.TrendSeries
	err := c.retrier.Do(ctx, func() error {
		var fetchErr error
		series, fetchErr = c.fetchOnce(q)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (c *Client) fetchOnce(q trends.TrendQuery) (*trends.TrendSeries, error) {
	payload, err := json.Marshal(TrendRequest{
		Keywords:  q.Keywords,
		Timeframe: q.Timeframe.String(),
		Frequency: string(q.Frequency),
		Geo:       q.Geo,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trend request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + "/trend")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.SetBody(payload)

	c.log.WithField("keywords", q.Keywords).Debug("Requesting trend data")
	if err := c.httpc.DoTimeout(req, resp, c.config.Timeout); err != nil {
		return nil, &trends.UpstreamError{Err: fmt.Errorf("request failed: %w", err)}
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
		// fall through
	case fasthttp.StatusBadRequest:
		return nil, &trends.ValidationError{Field: "request", Reason: errorMessage(resp.Body())}
	case fasthttp.StatusNotFound:
		return nil, &trends.NoDataError{Keywords: q.Keywords}
	case fasthttp.StatusTooManyRequests:
		return nil, &trends.RateLimitError{RetryAfter: retryAfterBody(resp.Body())}
	default:
		return nil, &trends.UpstreamError{
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s", errorMessage(resp.Body())),
		}
	}

	var body struct {
		Data []trends.Record `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &trends.UpstreamError{Err: fmt.Errorf("failed to decode trend response: %w", err)}
	}
	if len(body.Data) == 0 {
		return nil, &trends.NoDataError{Keywords: q.Keywords}
	}
	return trends.SeriesFromRecords(body.Data, q.Keywords)
}

func (c *Client) get(path string) (int, []byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	if err := c.httpc.DoTimeout(req, resp, c.config.Timeout); err != nil {
		return 0, nil, err
	}
	body := append([]byte(nil), resp.Body()...)
	return resp.StatusCode(), body, nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return string(body)
}

func retryAfterBody(body []byte) time.Duration {
	var payload struct {
		RetryAfter json.Number `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if secs, err := strconv.Atoi(payload.RetryAfter.String()); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
