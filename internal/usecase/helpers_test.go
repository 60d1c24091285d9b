package usecase

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"postbackbot/internal/domain"
	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

type sentMessage struct {
	Destination string
	Text        string
}

type fakeNotifier struct {
	mu       sync.Mutex
	SendFunc func(ctx context.Context, destination, text string) error
	Sent     []sentMessage
}

func (f *fakeNotifier) Send(ctx context.Context, destination, text string) error {
	f.mu.Lock()
	f.Sent = append(f.Sent, sentMessage{Destination: destination, Text: text})
	f.mu.Unlock()
	if f.SendFunc != nil {
		return f.SendFunc(ctx, destination, text)
	}
	return nil
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.Sent...)
}

type fakeReportClient struct {
	FetchFunc func(ctx context.Context, q domain.ReportQuery) (*domain.Report, error)
	lastQuery domain.ReportQuery
	calls     int
}

func (f *fakeReportClient) FetchReport(ctx context.Context, q domain.ReportQuery) (*domain.Report, error) {
	f.calls++
	f.lastQuery = q
	if f.FetchFunc != nil {
		return f.FetchFunc(ctx, q)
	}
	return &domain.Report{}, nil
}

func testLogger() *logger.Logger {
	return logger.NewWithOutput("panic", io.Discard)
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func mustTemplate(t *testing.T, variant string) Template {
	t.Helper()
	tmpl, err := SelectTemplate(variant, "")
	if err != nil {
		t.Fatalf("SelectTemplate(%q): %v", variant, err)
	}
	return tmpl
}
