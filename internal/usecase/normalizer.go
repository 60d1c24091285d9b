package usecase

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"postbackbot/internal/domain"
)

// Encoding names the representation a postback's parameters were read from.
type Encoding string

const (
	EncodingQuery Encoding = "query"
	EncodingJSON  Encoding = "json"
	EncodingForm  Encoding = "form"
	EncodingNone  Encoding = "none"
)

const maxMultipartMemory = 1 << 20

// Normalizer turns raw postbacks into canonical events. It never fails: a
// payload that cannot be read yields an event made of defaults.
type Normalizer struct {
	now func() time.Time
}

func NewNormalizer(now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{now: now}
}

func (n *Normalizer) Normalize(raw domain.RawPayload) domain.CanonicalEvent {
	params, _ := n.Decode(raw)
	return n.Build(params)
}

// Decode returns the parameter set of a postback. Query parameters are the
// base; a body that parses as JSON or, failing that, as a form replaces them
// entirely.
func (n *Normalizer) Decode(raw domain.RawPayload) (map[string]string, Encoding) {
	params := lastValues(raw.Query)
	if !carriesBody(raw.Method) {
		return params, EncodingQuery
	}

	if fields, ok := decodeJSON(raw.Body); ok {
		return fields, EncodingJSON
	}
	if fields, ok := decodeForm(raw.ContentType, raw.Body); ok {
		return fields, EncodingForm
	}

	return map[string]string{}, EncodingNone
}

// Build applies key aliases and defaults and stamps the receive time.
func (n *Normalizer) Build(params map[string]string) domain.CanonicalEvent {
	return domain.CanonicalEvent{
		SubID:      pick(params, domain.FieldSubID, domain.DefaultText),
		Status:     pick(params, domain.FieldStatus, domain.DefaultText),
		Payout:     pick(params, domain.FieldPayout, domain.DefaultPayout),
		Currency:   pick(params, domain.FieldCurrency, domain.DefaultCurrency),
		Campaign:   pick(params, domain.FieldCampaign, domain.DefaultText),
		Adset:      pick(params, domain.FieldAdset, domain.DefaultText),
		ReceivedAt: n.now().Format(domain.ReceivedAtLayout),
	}
}

func pick(params map[string]string, field, fallback string) string {
	for _, key := range domain.FieldKeys[field] {
		if value := strings.TrimSpace(params[key]); value != "" {
			return value
		}
	}
	return fallback
}

func carriesBody(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// repeated keys keep the last value
func lastValues(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key, list := range values {
		if len(list) > 0 {
			params[key] = list[len(list)-1]
		}
	}
	return params
}

// decodeJSON accepts exactly one JSON object. Scalars are stringified; null,
// arrays and nested objects are treated as absent.
func decodeJSON(body []byte) (map[string]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}

	params := make(map[string]string, len(doc))
	for key, value := range doc {
		switch v := value.(type) {
		case string:
			params[key] = v
		case json.Number:
			params[key] = v.String()
		case bool:
			params[key] = strconv.FormatBool(v)
		}
	}
	return params, true
}

func decodeForm(contentType string, body []byte) (map[string]string, bool) {
	mediaType, mediaParams, _ := mime.ParseMediaType(contentType)
	if mediaType == "multipart/form-data" {
		boundary := mediaParams["boundary"]
		if boundary == "" {
			return nil, false
		}
		form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxMultipartMemory)
		if err != nil {
			return nil, false
		}
		defer form.RemoveAll()
		return lastValues(url.Values(form.Value)), true
	}

	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, false
	}
	return lastValues(values), true
}
