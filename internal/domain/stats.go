package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the date format the reporting API expects.
const DateLayout = "2006-01-02"

// StatsWindowDays is the length of the trailing stats window, today included.
const StatsWindowDays = 7

// Report columns requested from the tracker.
const (
	ColumnClicks       = "clicks"
	ColumnUniqueClicks = "unique_clicks"
	ColumnGoal1        = "goal1"
	ColumnGoal2        = "goal2"
	ColumnGoal3        = "goal3"
	ColumnPayout       = "payout"
)

var ReportColumns = []string{
	ColumnClicks,
	ColumnUniqueClicks,
	ColumnGoal1,
	ColumnGoal2,
	ColumnGoal3,
	ColumnPayout,
}

// ReportQuery describes one reporting API request.
type ReportQuery struct {
	From     time.Time
	To       time.Time
	Grouping string
	Timezone string
	Columns  []string
}

// ReportRow is one row as returned by the tracker. Values are kept raw
// (json.Number, string, nil) and interpreted by the aggregator.
type ReportRow map[string]any

type Report struct {
	Rows []ReportRow `json:"rows"`
}

// StatsTotals accumulates report rows. Fields only grow while one response is
// processed; a new value is built per query.
type StatsTotals struct {
	Clicks       int64           `json:"clicks"`
	UniqueClicks int64           `json:"unique_clicks"`
	Goal1        int64           `json:"goal1"`
	Goal2        int64           `json:"goal2"`
	Goal3        int64           `json:"goal3"`
	Payout       decimal.Decimal `json:"payout"`
}

// StatsReport is the aggregated result handed to the renderer.
type StatsReport struct {
	From   time.Time   `json:"from"`
	To     time.Time   `json:"to"`
	Rows   int         `json:"rows"`
	Totals StatsTotals `json:"totals"`
}
