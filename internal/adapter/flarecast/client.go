package flarecast

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/flare-region-etl/internal/domain"
	"github.com/couchcryptid/flare-region-etl/internal/observability"
)

// queryTimeLayout is the timestamp form used inside time_start=between(a,b).
const queryTimeLayout = "2006-01-02T15:04:05"

// Slice outcomes recorded on the fetch_slices_total metric.
const (
	outcomeSuccess        = "success"
	outcomeTransportError = "transport_error"
	outcomeBadStatus      = "bad_status"
	outcomeDecodeError    = "decode_error"
	outcomeCanceled       = "canceled"
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	Dataset   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 = unlimited
}

// Client implements domain.PropertyFetcher against the FLARECAST property
// service.
type Client struct {
	baseURL    string
	dataset    string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a FLARECAST property client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return &Client{
		baseURL: opts.BaseURL,
		dataset: opts.Dataset,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: limiter,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchRange downloads [q.Start, q.End) in consecutive slices of q.SliceSize,
// the last one clipped to q.End. A slice that fails is logged and counted;
// the records of every other slice are still returned.
func (c *Client) FetchRange(ctx context.Context, q domain.RangeQuery) domain.FetchResult {
	var result domain.FetchResult
	step := q.SliceSize
	if step <= 0 {
		step = q.End.Sub(q.Start)
	}

	for start := q.Start; start.Before(q.End); start = start.Add(step) {
		end := start.Add(step)
		if end.After(q.End) {
			end = q.End
		}
		result.Slices++

		if ctx.Err() != nil {
			result.Failed++
			c.metrics.FetchSlices.WithLabelValues(outcomeCanceled).Inc()
			continue
		}

		records, outcome, err := c.fetchSlice(ctx, start, end, q.Params)
		c.metrics.FetchSlices.WithLabelValues(outcome).Inc()
		if err != nil {
			result.Failed++
			c.logger.Warn("property slice failed",
				"start", start.Format(queryTimeLayout),
				"end", end.Format(queryTimeLayout),
				"outcome", outcome,
				"error", err,
			)
			continue
		}
		result.Records = append(result.Records, records...)
	}

	c.logger.Debug("property range fetched",
		"start", q.Start.Format(queryTimeLayout),
		"end", q.End.Format(queryTimeLayout),
		"slices", result.Slices,
		"failed", result.Failed,
		"records", len(result.Records),
	)
	return result
}

func (c *Client) fetchSlice(ctx context.Context, start, end time.Time, extra map[string]string) ([]domain.PropertyRecord, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, outcomeCanceled, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	params := url.Values{}
	for k, v := range extra {
		params.Set(k, v)
	}
	params.Set("time_start", fmt.Sprintf("between(%s,%s)", start.Format(queryTimeLayout), end.Format(queryTimeLayout)))
	u := fmt.Sprintf("%s/region/%s/list?%s", c.baseURL, url.PathEscape(c.dataset), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, outcomeTransportError, fmt.Errorf("create request: %w", err)
	}

	began := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchRequestDuration.Observe(time.Since(began).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return nil, outcomeCanceled, fmt.Errorf("property request: %w", err)
		}
		return nil, outcomeTransportError, fmt.Errorf("property request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, outcomeBadStatus, fmt.Errorf("flarecast API error: status %d: %s", resp.StatusCode, body)
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var listResp listResponse
	if err := dec.Decode(&listResp); err != nil {
		return nil, outcomeDecodeError, fmt.Errorf("decode response: %w", err)
	}

	records := make([]domain.PropertyRecord, 0, len(listResp.Data))
	for _, r := range listResp.Data {
		rec, err := r.toDomain()
		if err != nil {
			c.logger.Debug("skipping property record", "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, outcomeSuccess, nil
}

// FLARECAST API response types.

type listResponse struct {
	Data []region `json:"data"`
}

type region struct {
	TimeStart string         `json:"time_start"`
	Meta      regionMeta     `json:"meta"`
	LatHG     float64        `json:"lat_hg"`
	LongHG    float64        `json:"long_hg"`
	Data      map[string]any `json:"data"`
}

type regionMeta struct {
	NAR  []int `json:"nar"`
	HARP int   `json:"harp"`
}

func (r region) toDomain() (domain.PropertyRecord, error) {
	t, err := domain.ParseTimestamp(r.TimeStart)
	if err != nil {
		return domain.PropertyRecord{}, fmt.Errorf("time_start %q: %w", r.TimeStart, err)
	}
	return domain.PropertyRecord{
		Time:          t,
		RegionNumbers: r.Meta.NAR,
		HARP:          r.Meta.HARP,
		Lat:           r.LatHG,
		Lon:           r.LongHG,
		Data:          r.Data,
	}, nil
}
