package usecase

import (
	"fmt"
	"os"
	"sort"

	"postbackbot/internal/domain"

	"gopkg.in/yaml.v3"
)

// Stats line identifiers.
const (
	StatsClicks         = "clicks"
	StatsRegistrations  = "registrations"
	StatsDeposits       = "deposits"
	StatsRepeatDeposits = "rd"
	StatsPayout         = "payout"
)

// StatsCurrency labels the payout total. The reporting API reports in the
// tracker's base currency.
const StatsCurrency = "USD"

const DefaultVariant = "postback"

// FieldLine is one labeled line of a message.
type FieldLine struct {
	Field string `yaml:"field"`
	Emoji string `yaml:"emoji"`
	Label string `yaml:"label"`
}

type StatsTemplate struct {
	Title    string      `yaml:"title"`
	Lines    []FieldLine `yaml:"lines"`
	Progress string      `yaml:"progress"`
	Failure  string      `yaml:"failure"`
}

// Template describes one integration variant: which postback fields are shown,
// in which order and with which labels.
type Template struct {
	Name   string        `yaml:"name"`
	Title  string        `yaml:"title"`
	Fields []FieldLine   `yaml:"fields"`
	Stats  StatsTemplate `yaml:"stats"`
}

type templateFile struct {
	Variants []Template `yaml:"variants"`
}

var englishStats = StatsTemplate{
	Title: "📊 <b>Stats for the last 7 days</b>",
	Lines: []FieldLine{
		{Field: StatsClicks, Emoji: "🖱", Label: "Clicks"},
		{Field: StatsRegistrations, Emoji: "📝", Label: "Registrations"},
		{Field: StatsDeposits, Emoji: "💳", Label: "Deposits"},
		{Field: StatsRepeatDeposits, Emoji: "🔁", Label: "RD"},
		{Field: StatsPayout, Emoji: "💰", Label: "Payout"},
	},
	Progress: "⏳ Collecting stats for the last 7 days...",
	Failure:  "❌ Failed to fetch stats",
}

// BuiltinTemplates returns the variants shipped with the service.
func BuiltinTemplates() map[string]Template {
	return map[string]Template{
		"postback": {
			Name:  "postback",
			Title: "📥 <b>Keitaro Postback</b>",
			Fields: []FieldLine{
				{Field: domain.FieldSubID, Emoji: "👤", Label: "sub1"},
				{Field: domain.FieldStatus, Emoji: "🎯", Label: "Status"},
				{Field: domain.FieldPayout, Emoji: "💰", Label: "Payout"},
				{Field: domain.FieldCampaign, Emoji: "📛", Label: "Campaign"},
				{Field: domain.FieldReceivedAt, Emoji: "⏰", Label: "Time"},
			},
			Stats: englishStats,
		},
		"conversion": {
			Name:  "conversion",
			Title: "📥 <b>Новая конверсия!</b>",
			Fields: []FieldLine{
				{Field: domain.FieldStatus, Emoji: "🎯", Label: "Событие"},
				{Field: domain.FieldPayout, Emoji: "💰", Label: "Выплата"},
				{Field: domain.FieldCampaign, Emoji: "📛", Label: "Кампания"},
				{Field: domain.FieldAdset, Emoji: "📛", Label: "Адсет"},
				{Field: domain.FieldReceivedAt, Emoji: "⏰", Label: "Время"},
			},
			Stats: StatsTemplate{
				Title: "📊 <b>Статистика за 7 дней</b>",
				Lines: []FieldLine{
					{Field: StatsClicks, Emoji: "🖱", Label: "Клики"},
					{Field: StatsRegistrations, Emoji: "📝", Label: "Регистрации"},
					{Field: StatsDeposits, Emoji: "💳", Label: "Депозиты"},
					{Field: StatsRepeatDeposits, Emoji: "🔁", Label: "RD"},
					{Field: StatsPayout, Emoji: "💰", Label: "Выплаты"},
				},
				Progress: "⏳ Собираю статистику за 7 дней...",
				Failure:  "❌ Не удалось получить статистику",
			},
		},
		"full": {
			Name:  "full",
			Title: "📥 <b>Keitaro Postback</b>",
			Fields: []FieldLine{
				{Field: domain.FieldSubID, Emoji: "👤", Label: "sub1"},
				{Field: domain.FieldStatus, Emoji: "🎯", Label: "Status"},
				{Field: domain.FieldPayout, Emoji: "💰", Label: "Payout"},
				{Field: domain.FieldCampaign, Emoji: "📛", Label: "Campaign"},
				{Field: domain.FieldAdset, Emoji: "🗂", Label: "Adset"},
				{Field: domain.FieldReceivedAt, Emoji: "⏰", Label: "Time"},
			},
			Stats: englishStats,
		},
	}
}

// LoadTemplates returns the builtin variants overlaid with the variants
// declared in the YAML file at path. An empty path yields the builtins.
func LoadTemplates(path string) (map[string]Template, error) {
	templates := BuiltinTemplates()
	if path == "" {
		return templates, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read templates file: %w", err)
	}

	var file templateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse templates file: %w", err)
	}

	for _, tmpl := range file.Variants {
		if tmpl.Name == "" {
			return nil, fmt.Errorf("templates file %s: variant without name", path)
		}
		if len(tmpl.Stats.Lines) == 0 {
			tmpl.Stats.Lines = englishStats.Lines
		}
		if tmpl.Stats.Title == "" {
			tmpl.Stats.Title = englishStats.Title
		}
		if tmpl.Stats.Progress == "" {
			tmpl.Stats.Progress = englishStats.Progress
		}
		if tmpl.Stats.Failure == "" {
			tmpl.Stats.Failure = englishStats.Failure
		}
		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("templates file %s: %w", path, err)
		}
		templates[tmpl.Name] = tmpl
	}

	return templates, nil
}

// SelectTemplate loads the templates and picks the named variant.
func SelectTemplate(variant, path string) (Template, error) {
	templates, err := LoadTemplates(path)
	if err != nil {
		return Template{}, err
	}

	tmpl, ok := templates[variant]
	if !ok {
		names := make([]string, 0, len(templates))
		for name := range templates {
			names = append(names, name)
		}
		sort.Strings(names)
		return Template{}, fmt.Errorf("unknown message variant %q (available: %v)", variant, names)
	}

	return tmpl, nil
}

func (t Template) Validate() error {
	if t.Title == "" {
		return fmt.Errorf("variant %q: empty title", t.Name)
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("variant %q: no fields", t.Name)
	}
	for _, line := range t.Fields {
		if _, ok := (domain.CanonicalEvent{}).Value(line.Field); !ok {
			return fmt.Errorf("variant %q: unknown field %q", t.Name, line.Field)
		}
	}
	for _, line := range t.Stats.Lines {
		switch line.Field {
		case StatsClicks, StatsRegistrations, StatsDeposits, StatsRepeatDeposits, StatsPayout:
		default:
			return fmt.Errorf("variant %q: unknown stats line %q", t.Name, line.Field)
		}
	}
	return nil
}
