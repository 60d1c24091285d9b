package usecase

import (
	"html"
	"strconv"
	"strings"

	"postbackbot/internal/domain"
)

// Renderer formats events and stats as Telegram HTML messages. It does no I/O.
type Renderer struct {
	template Template
}

func NewRenderer(template Template) *Renderer {
	return &Renderer{template: template}
}

func (r *Renderer) Template() Template {
	return r.template
}

// RenderEvent formats one postback. Identical events render identically.
func (r *Renderer) RenderEvent(event domain.CanonicalEvent) string {
	var b strings.Builder
	b.WriteString(r.template.Title)
	b.WriteString("\n")

	for _, line := range r.template.Fields {
		value, _ := event.Value(line.Field)
		if line.Field == domain.FieldPayout {
			value = event.Payout + " " + event.Currency
		}
		b.WriteString("\n")
		writeLine(&b, line, value)
	}

	return b.String()
}

// RenderStats formats an aggregated report. The payout total always carries
// exactly two decimals.
func (r *Renderer) RenderStats(report domain.StatsReport) string {
	stats := r.template.Stats
	totals := report.Totals

	var b strings.Builder
	b.WriteString(stats.Title)
	b.WriteString("\n<i>")
	b.WriteString(report.From.Format(domain.DateLayout))
	b.WriteString(" — ")
	b.WriteString(report.To.Format(domain.DateLayout))
	b.WriteString("</i>\n")

	for _, line := range stats.Lines {
		var value string
		switch line.Field {
		case StatsClicks:
			value = strconv.FormatInt(totals.Clicks, 10) + " (" + strconv.FormatInt(totals.UniqueClicks, 10) + ")"
		case StatsRegistrations:
			value = strconv.FormatInt(totals.Goal1, 10)
		case StatsDeposits:
			value = strconv.FormatInt(totals.Goal2, 10)
		case StatsRepeatDeposits:
			value = strconv.FormatInt(totals.Goal3, 10)
		case StatsPayout:
			value = totals.Payout.StringFixed(2) + " " + StatsCurrency
		}
		b.WriteString("\n")
		writeLine(&b, line, value)
	}

	return b.String()
}

// RenderProgress is the acknowledgement sent before the report is fetched.
func (r *Renderer) RenderProgress() string {
	return r.template.Stats.Progress
}

func (r *Renderer) RenderFailure(err error) string {
	if err == nil {
		return r.template.Stats.Failure
	}
	return r.template.Stats.Failure + ": <i>" + html.EscapeString(err.Error()) + "</i>"
}

func writeLine(b *strings.Builder, line FieldLine, value string) {
	if line.Emoji != "" {
		b.WriteString(line.Emoji)
		b.WriteString(" ")
	}
	b.WriteString("<b>")
	b.WriteString(line.Label)
	b.WriteString(":</b> <i>")
	b.WriteString(html.EscapeString(value))
	b.WriteString("</i>")
}
