package domain

import "net/url"

// ReceivedAtLayout formats CanonicalEvent.ReceivedAt.
const ReceivedAtLayout = "2006-01-02 15:04:05"

// Canonical field identifiers, also used by message templates.
const (
	FieldSubID      = "sub_id"
	FieldStatus     = "status"
	FieldPayout     = "payout"
	FieldCurrency   = "currency"
	FieldCampaign   = "campaign"
	FieldAdset      = "adset"
	FieldReceivedAt = "time"
)

// Defaults applied when a postback omits a field or sends it empty.
const (
	DefaultText     = "N/A"
	DefaultPayout   = "0"
	DefaultCurrency = "USD"
)

// FieldKeys lists the inbound parameter names read for each canonical field,
// in precedence order. Trackers disagree on payout vs revenue.
var FieldKeys = map[string][]string{
	FieldSubID:    {"sub1"},
	FieldStatus:   {"status"},
	FieldPayout:   {"payout", "revenue"},
	FieldCurrency: {"currency"},
	FieldCampaign: {"campaign"},
	FieldAdset:    {"adset"},
}

// RawPayload is an inbound postback before normalization.
type RawPayload struct {
	Method      string
	Query       url.Values
	ContentType string
	Body        []byte
}

// CanonicalEvent is one normalized postback. Every field is always populated.
type CanonicalEvent struct {
	SubID      string `json:"sub_id"`
	Status     string `json:"status"`
	Payout     string `json:"payout"`
	Currency   string `json:"currency"`
	Campaign   string `json:"campaign"`
	Adset      string `json:"adset"`
	ReceivedAt string `json:"received_at"`
}

// Value returns the field identified by one of the Field* constants.
func (e CanonicalEvent) Value(field string) (string, bool) {
	switch field {
	case FieldSubID:
		return e.SubID, true
	case FieldStatus:
		return e.Status, true
	case FieldPayout:
		return e.Payout, true
	case FieldCurrency:
		return e.Currency, true
	case FieldCampaign:
		return e.Campaign, true
	case FieldAdset:
		return e.Adset, true
	case FieldReceivedAt:
		return e.ReceivedAt, true
	}
	return "", false
}
