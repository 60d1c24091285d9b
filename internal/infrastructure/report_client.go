package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"

	"golang.org/x/time/rate"
)

const (
	reportAPI          = "keitaro_report"
	maxReportBodyBytes = 16 << 20
)

// implements domain.ReportClient against the Keitaro admin API
type ReportClient struct {
	client      *http.Client
	reportURL   string
	apiKey      string
	logger      *logger.Logger
	metrics     *metrics.Metrics
	rateLimiter *rate.Limiter
}

// creates a new reporting API client
func NewReportClient(reportURL, apiKey string, timeout time.Duration, ratePerSecond, burst int, logger *logger.Logger, metrics *metrics.Metrics) *ReportClient {
	return &ReportClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		reportURL:   reportURL,
		apiKey:      apiKey,
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// fetches one report; a single attempt, no retry
func (c *ReportClient) FetchReport(ctx context.Context, query domain.ReportQuery) (*domain.Report, error) {
	start := time.Now()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		c.metrics.RecordExternalAPIFailure(reportAPI, "rate_limit")
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	endpoint, err := c.buildURL(query)
	if err != nil {
		c.metrics.RecordExternalAPIFailure(reportAPI, "request_creation")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.metrics.RecordExternalAPIFailure(reportAPI, "request_creation")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		c.metrics.RecordExternalAPIFailure(reportAPI, "network_error")
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordExternalAPICall(reportAPI, fmt.Sprintf("error_%d", resp.StatusCode), duration)
		return nil, fmt.Errorf("reporting API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReportBodyBytes))
	if err != nil {
		c.metrics.RecordExternalAPIFailure(reportAPI, "read_body")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// numbers stay json.Number so payouts keep their exact decimal text
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var report domain.Report
	if err := dec.Decode(&report); err != nil {
		c.metrics.RecordExternalAPIFailure(reportAPI, "json_parse")
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	c.metrics.RecordExternalAPICall(reportAPI, "success", duration)

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"duration": duration,
		"rows":     len(report.Rows),
		"from":     query.From.Format(domain.DateLayout),
		"to":       query.To.Format(domain.DateLayout),
	}).Info("Successfully fetched report")

	return &report, nil
}

func (c *ReportClient) buildURL(query domain.ReportQuery) (string, error) {
	u, err := url.Parse(c.reportURL)
	if err != nil {
		return "", fmt.Errorf("invalid report URL: %w", err)
	}

	params := u.Query()
	params.Set("grouping", query.Grouping)
	params.Set("timezone", query.Timezone)
	params.Set("range", "custom")
	params.Set("from", query.From.Format(domain.DateLayout))
	params.Set("to", query.To.Format(domain.DateLayout))
	params.Set("columns", strings.Join(query.Columns, ","))
	u.RawQuery = params.Encode()

	return u.String(), nil
}
