package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"

	"github.com/shopspring/decimal"
)

// StatsService answers the weekly stats command from the tracker reporting API.
type StatsService struct {
	client     domain.ReportClient
	renderer   *Renderer
	dispatcher *Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Metrics
	timeout    time.Duration
	now        func() time.Time
}

func NewStatsService(
	client domain.ReportClient,
	renderer *Renderer,
	dispatcher *Dispatcher,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	timeout time.Duration,
	now func() time.Time,
) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{
		client:     client,
		renderer:   renderer,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
		timeout:    timeout,
		now:        now,
	}
}

// Window returns the trailing stats window ending today (UTC), today included.
func (s *StatsService) Window() (from, to time.Time) {
	now := s.now().UTC()
	to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from = to.AddDate(0, 0, -(domain.StatsWindowDays - 1))
	return from, to
}

// Aggregate7Days fetches the daily report for the trailing window and sums its
// rows. Any fetch failure fails the whole call; no partial totals are returned.
func (s *StatsService) Aggregate7Days(ctx context.Context) (*domain.StatsReport, error) {
	from, to := s.Window()
	log := s.logger.WithContext(ctx)
	log.WithFields(map[string]any{
		"from": from.Format(domain.DateLayout),
		"to":   to.Format(domain.DateLayout),
	}).Info("Aggregating stats")

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	report, err := s.client.FetchReport(ctx, domain.ReportQuery{
		From:     from,
		To:       to,
		Grouping: "day",
		Timezone: "UTC",
		Columns:  domain.ReportColumns,
	})
	if err != nil {
		log.WithError(err).Error("Failed to fetch report")
		return nil, fmt.Errorf("failed to fetch report: %w", err)
	}

	totals := domain.StatsTotals{Payout: decimal.Zero}
	for i, row := range report.Rows {
		totals.Clicks += s.count(row, domain.ColumnClicks)
		totals.UniqueClicks += s.count(row, domain.ColumnUniqueClicks)
		totals.Goal1 += s.count(row, domain.ColumnGoal1)
		totals.Goal2 += s.count(row, domain.ColumnGoal2)
		totals.Goal3 += s.count(row, domain.ColumnGoal3)

		payout, ok := numeric(row[domain.ColumnPayout])
		if !ok {
			s.metrics.RecordPayoutParseFailure()
			log.WithFields(map[string]any{
				"row":    i,
				"payout": row[domain.ColumnPayout],
			}).Warn("Unparsable payout, counting as zero")
			continue
		}
		if payout.IsPositive() {
			totals.Payout = totals.Payout.Add(payout)
		}
	}

	log.WithFields(map[string]any{
		"rows":   len(report.Rows),
		"clicks": totals.Clicks,
		"payout": totals.Payout.StringFixed(2),
	}).Info("Stats aggregated")

	return &domain.StatsReport{
		From:   from,
		To:     to,
		Rows:   len(report.Rows),
		Totals: totals,
	}, nil
}

// RunStatsCommand acknowledges the command in chatID, aggregates the window
// and replies with the rendered report or a failure message.
func (s *StatsService) RunStatsCommand(ctx context.Context, chatID string) error {
	start := time.Now()
	log := s.logger.WithContext(ctx)

	ack := s.dispatcher.Deliver(ctx, chatID, s.renderer.RenderProgress())
	s.metrics.RecordNotification("ack", ack.OK)
	if !ack.OK {
		log.WithField("details", ack.Details).Warn("Failed to acknowledge stats command")
	}

	report, err := s.Aggregate7Days(ctx)
	if err != nil {
		reply := s.dispatcher.Deliver(ctx, chatID, s.renderer.RenderFailure(err))
		s.metrics.RecordNotification("stats", reply.OK)
		s.metrics.RecordStatsCommand("api_error", time.Since(start))
		return err
	}

	reply := s.dispatcher.Deliver(ctx, chatID, s.renderer.RenderStats(*report))
	s.metrics.RecordNotification("stats", reply.OK)
	if !reply.OK {
		s.metrics.RecordStatsCommand("delivery_error", time.Since(start))
		return fmt.Errorf("failed to deliver stats: %s", reply.Details)
	}

	s.metrics.RecordStatsCommand("success", time.Since(start))
	return nil
}

// count reads an integer column. Absent, unparsable and negative values count
// as zero.
func (s *StatsService) count(row domain.ReportRow, column string) int64 {
	value, ok := numeric(row[column])
	if !ok {
		s.logger.WithFields(map[string]any{
			"column": column,
			"value":  row[column],
		}).Debug("Unparsable count, counting as zero")
		return 0
	}
	if !value.IsPositive() {
		return 0
	}
	return value.IntPart()
}

// numeric parses a report cell. A missing cell is a valid zero.
func numeric(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case nil:
		return decimal.Zero, true
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return decimal.Zero, true
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	}
	return decimal.Zero, false
}
