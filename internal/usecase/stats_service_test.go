package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"postbackbot/internal/domain"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var statsNow = time.Date(2026, 10, 18, 23, 30, 0, 0, time.FixedZone("UTC+3", 3*3600))

func newStatsService(t *testing.T, client *fakeReportClient, notifier *fakeNotifier) *StatsService {
	t.Helper()
	m := testMetrics()
	svc := NewStatsService(
		client,
		NewRenderer(mustTemplate(t, "postback")),
		NewDispatcher(notifier, "-100", time.Second, testLogger()),
		testLogger(),
		m,
		time.Second,
		fixedClock(statsNow),
	)
	return svc
}

func weekOfRows(payout any) []domain.ReportRow {
	rows := make([]domain.ReportRow, 7)
	for i := range rows {
		rows[i] = domain.ReportRow{
			"clicks":        json.Number("10"),
			"unique_clicks": json.Number("5"),
			"goal1":         json.Number("1"),
			"goal2":         json.Number("0"),
			"goal3":         json.Number("0"),
			"payout":        payout,
		}
	}
	return rows
}

func TestWindow_TrailingSevenDaysUTC(t *testing.T) {
	svc := newStatsService(t, &fakeReportClient{}, &fakeNotifier{})

	from, to := svc.Window()
	// 23:30 at UTC+3 is 20:30 UTC on the same day
	if got := to.Format(domain.DateLayout); got != "2026-10-18" {
		t.Fatalf("expected to=2026-10-18, got %s", got)
	}
	if got := from.Format(domain.DateLayout); got != "2026-10-12" {
		t.Fatalf("expected from=2026-10-12, got %s", got)
	}
}

func TestAggregate7Days_SumsRows(t *testing.T) {
	client := &fakeReportClient{
		FetchFunc: func(ctx context.Context, q domain.ReportQuery) (*domain.Report, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("expected bounded context")
			}
			return &domain.Report{Rows: weekOfRows("2.50")}, nil
		},
	}
	svc := newStatsService(t, client, &fakeNotifier{})

	report, err := svc.Aggregate7Days(context.Background())
	if err != nil {
		t.Fatalf("Aggregate7Days: %v", err)
	}

	got := report.Totals
	if got.Clicks != 70 || got.UniqueClicks != 35 || got.Goal1 != 7 || got.Goal2 != 0 || got.Goal3 != 0 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got.Payout.StringFixed(2) != "17.50" {
		t.Fatalf("expected payout 17.50, got %s", got.Payout.StringFixed(2))
	}
	if report.Rows != 7 {
		t.Fatalf("expected 7 rows, got %d", report.Rows)
	}

	q := client.lastQuery
	if q.Grouping != "day" || q.Timezone != "UTC" {
		t.Fatalf("unexpected query: %+v", q)
	}
	if strings.Join(q.Columns, ",") != "clicks,unique_clicks,goal1,goal2,goal3,payout" {
		t.Fatalf("unexpected columns: %v", q.Columns)
	}

	msg := NewRenderer(mustTemplate(t, "postback")).RenderStats(*report)
	if !strings.Contains(msg, "17.50 USD") {
		t.Fatalf("rendered stats missing payout: %s", msg)
	}
}

func TestAggregate7Days_UnparsablePayoutCountsZero(t *testing.T) {
	rows := weekOfRows(json.Number("2.50"))
	rows[3]["payout"] = "N/A"

	client := &fakeReportClient{
		FetchFunc: func(ctx context.Context, q domain.ReportQuery) (*domain.Report, error) {
			return &domain.Report{Rows: rows}, nil
		},
	}
	svc := newStatsService(t, client, &fakeNotifier{})

	report, err := svc.Aggregate7Days(context.Background())
	if err != nil {
		t.Fatalf("one bad row must not fail the call: %v", err)
	}
	if report.Totals.Payout.StringFixed(2) != "15.00" {
		t.Fatalf("expected 15.00, got %s", report.Totals.Payout.StringFixed(2))
	}
	if report.Totals.Clicks != 70 {
		t.Fatalf("other columns of the bad row still count, got %d clicks", report.Totals.Clicks)
	}
	if got := testutil.ToFloat64(svc.metrics.PayoutParseFailures); got != 1 {
		t.Fatalf("expected 1 parse failure, got %v", got)
	}
}

func TestAggregate7Days_MissingAndOddCells(t *testing.T) {
	client := &fakeReportClient{
		FetchFunc: func(ctx context.Context, q domain.ReportQuery) (*domain.Report, error) {
			return &domain.Report{Rows: []domain.ReportRow{
				{"clicks": "12", "payout": 1.25},
				{"clicks": json.Number("3.0"), "goal2": "x", "payout": ""},
				{"clicks": json.Number("-4"), "goal3": json.Number("2"), "payout": json.Number("-1")},
				{},
			}}, nil
		},
	}
	svc := newStatsService(t, client, &fakeNotifier{})

	report, err := svc.Aggregate7Days(context.Background())
	if err != nil {
		t.Fatalf("Aggregate7Days: %v", err)
	}

	got := report.Totals
	if got.Clicks != 15 || got.Goal2 != 0 || got.Goal3 != 2 || got.UniqueClicks != 0 {
		t.Fatalf("unexpected totals: %+v", got)
	}
	if got.Payout.StringFixed(2) != "1.25" {
		t.Fatalf("expected payout 1.25, got %s", got.Payout.StringFixed(2))
	}
}

func TestAggregate7Days_FetchError(t *testing.T) {
	client := &fakeReportClient{
		FetchFunc: func(ctx context.Context, q domain.ReportQuery) (*domain.Report, error) {
			return nil, errors.New("reporting API returned status 502")
		},
	}
	svc := newStatsService(t, client, &fakeNotifier{})

	report, err := svc.Aggregate7Days(context.Background())
	if err == nil || report != nil {
		t.Fatalf("expected failure without totals, got %+v, %v", report, err)
	}
	if !strings.Contains(err.Error(), "502") {
		t.Fatalf("error must carry the status code: %v", err)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", client.calls)
	}
}

func TestRunStatsCommand_AcksThenReplies(t *testing.T) {
	notifier := &fakeNotifier{}
	client := &fakeReportClient{
		FetchFunc: func(ctx context.Context, q domain.ReportQuery) (*domain.Report, error) {
			if len(notifier.messages()) != 1 {
				t.Error("acknowledgement must be sent before the report is fetched")
			}
			return &domain.Report{Rows: weekOfRows("2.50")}, nil
		},
	}
	svc := newStatsService(t, client, notifier)

	if err := svc.RunStatsCommand(context.Background(), "777"); err != nil {
		t.Fatalf("RunStatsCommand: %v", err)
	}

	sent := notifier.messages()
	if len(sent) != 2 {
		t.Fatalf("expected ack and report, got %d messages", len(sent))
	}
	if !strings.HasPrefix(sent[0].Text, "⏳") {
		t.Fatalf("first message should be the ack, got %s", sent[0].Text)
	}
	if sent[1].Destination != "777" || !strings.Contains(sent[1].Text, "70 (35)") {
		t.Fatalf("unexpected reply %+v", sent[1])
	}
	if got := testutil.ToFloat64(svc.metrics.StatsCommands.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected success to be counted, got %v", got)
	}
}

func TestRunStatsCommand_ReportsFailure(t *testing.T) {
	notifier := &fakeNotifier{}
	client := &fakeReportClient{
		FetchFunc: func(ctx context.Context, q domain.ReportQuery) (*domain.Report, error) {
			return nil, errors.New("reporting API returned status 401")
		},
	}
	svc := newStatsService(t, client, notifier)

	if err := svc.RunStatsCommand(context.Background(), "777"); err == nil {
		t.Fatal("expected error")
	}

	sent := notifier.messages()
	if len(sent) != 2 || !strings.HasPrefix(sent[1].Text, "❌") || !strings.Contains(sent[1].Text, "401") {
		t.Fatalf("expected failure reply, got %+v", sent)
	}
}
