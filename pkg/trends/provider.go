package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"trendsheet-go/pkg/logger"
)

// Provider fetches raw interest-over-time points from the upstream trends
// source. Implementations return series at the provider's native (weekly)
// resolution; resampling happens downstream.
type Provider interface {
	FetchInterest(ctx context.Context, keywords []string, tf Timeframe, geo string) (*TrendSeries, error)
}

// ProviderConfig configures the HTTP provider client.
type ProviderConfig struct {
	Endpoint  string
	Timeout   time.Duration
	UserAgent string
}

type httpProvider struct {
	config ProviderConfig
	client *fasthttp.Client
	log    *logger.Logger
}

// NewHTTPProvider creates a provider client over fasthttp.
func NewHTTPProvider(config ProviderConfig) Provider {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "trendsheet-go/1.0"
	}

	client := &fasthttp.Client{
		ReadTimeout:         config.Timeout,
		WriteTimeout:        config.Timeout,
		MaxConnsPerHost:     8,
		MaxIdleConnDuration: 90 * time.Second,
	}

	return &httpProvider{
		config: config,
		client: client,
		log:    logger.GetLogger().WithField("component", "trends_provider"),
	}
}

func (p *httpProvider) FetchInterest(ctx context.Context, keywords []string, tf Timeframe, geo string) (*TrendSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	params := url.Values{}
	params.Set("keywords", strings.Join(keywords, ","))
	params.Set("timeframe", tf.String())
	params.Set("geo", geo)

	req.SetRequestURI(p.config.Endpoint + "?" + params.Encode())
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("User-Agent", p.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	p.log.WithFields(map[string]interface{}{
		"keywords":  keywords,
		"timeframe": tf.String(),
		"geo":       geo,
	}).Debug("Querying upstream trends source")

	start := time.Now()
	if err := p.client.DoTimeout(req, resp, p.config.Timeout); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("request failed: %w", err)}
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK:
		// fall through to parsing
	case fasthttp.StatusTooManyRequests:
		return nil, &RateLimitError{RetryAfter: retryAfter(resp)}
	case fasthttp.StatusNotFound, fasthttp.StatusNoContent:
		return nil, &NoDataError{Keywords: keywords}
	default:
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s", resp.Body()),
		}
	}

	var body struct {
		Data []Record `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(body.Data) == 0 {
		return nil, &NoDataError{Keywords: keywords}
	}

	series, err := SeriesFromRecords(body.Data, keywords)
	if err != nil {
		return nil, err
	}

	p.log.WithFields(map[string]interface{}{
		"points":      len(series.Dates),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Upstream query completed")

	return series, nil
}

func retryAfter(resp *fasthttp.Response) time.Duration {
	if v := resp.Header.Peek("Retry-After"); len(v) > 0 {
		if secs, err := strconv.Atoi(string(v)); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return 0
}
