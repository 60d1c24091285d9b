package infrastructure

import (
	"io"

	"postbackbot/pkg/logger"
	"postbackbot/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func testLogger() *logger.Logger {
	return logger.NewWithOutput("panic", io.Discard)
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}
