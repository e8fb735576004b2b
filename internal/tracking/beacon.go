package tracking

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/apperr"
)

const (
	sourceDirect   = "Direct"
	sourceReferral = "Referral"
	countryUnknown = "Unknown"

	maxDurationMs   = 600000
	maxScrollPct    = 100
	maxPayloadDepth = 8
	truncatedValue  = "[truncated]"
)

// Beacon is the inbound JSON of POST /track.
type Beacon struct {
	SiteID        uuid.UUID      `json:"siteId" binding:"required"`
	Event         string         `json:"event" binding:"required"`
	URL           string         `json:"url"`
	Path          string         `json:"path"`
	Referrer      string         `json:"referrer"`
	Source        string         `json:"source"`
	Country       string         `json:"country"`
	VisitorID     string         `json:"visitorId"`
	SessionID     string         `json:"sessionId"`
	DurationMs    *int           `json:"durationMs" binding:"omitempty,min=0,max=600000"`
	ScrollPercent *int           `json:"scrollPercent" binding:"omitempty,min=0,max=100"`
	Bounced       *bool          `json:"bounced"`
	Payload       map[string]any `json:"payload"`
}

// normalized is a validated beacon with every derived field resolved except country.
type normalized struct {
	event         string
	url           *url.URL
	path          string
	referrer      *string
	source        string
	country       string
	visitorID     *string
	sessionID     *string
	durationMs    *int
	scrollPercent *int
	bounced       bool
	payload       map[string]any
}

// normalize trims and range-checks every field, collecting all failures.
func (b Beacon) normalize() (*normalized, error) {
	var fields []apperr.FieldError
	fail := func(field, msg string) {
		fields = append(fields, apperr.FieldError{Field: field, Message: msg})
	}
	length := func(field, v string, min, max int) string {
		v = strings.TrimSpace(v)
		if n := utf8.RuneCountInString(v); n < min || n > max {
			fail(field, fmt.Sprintf("must be between %d and %d characters", min, max))
		}
		return v
	}
	optional := func(field, v string, min, max int) string {
		if v == "" {
			return ""
		}
		return length(field, v, min, max)
	}

	n := &normalized{bounced: b.Bounced != nil && *b.Bounced}
	if b.SiteID == uuid.Nil {
		fail("siteId", "is required")
	}
	n.event = length("event", b.Event, 2, 80)
	if b.URL != "" {
		u, err := url.Parse(strings.TrimSpace(b.URL))
		if err != nil || u.Scheme == "" || u.Host == "" {
			fail("url", "must be a valid URL")
		} else {
			n.url = u
		}
	}
	n.path = optional("path", b.Path, 1, 255)
	n.source = optional("source", b.Source, 2, 80)
	n.country = optional("country", b.Country, 2, 80)
	if v := optional("visitorId", b.VisitorID, 3, 120); v != "" {
		n.visitorID = &v
	}
	if v := optional("sessionId", b.SessionID, 3, 120); v != "" {
		n.sessionID = &v
	}
	if b.Referrer != "" {
		r := b.Referrer
		n.referrer = &r
	}
	if b.DurationMs != nil && (*b.DurationMs < 0 || *b.DurationMs > maxDurationMs) {
		fail("durationMs", "must be between 0 and 600000")
	}
	if b.ScrollPercent != nil && (*b.ScrollPercent < 0 || *b.ScrollPercent > maxScrollPct) {
		fail("scrollPercent", "must be between 0 and 100")
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("Invalid tracking payload", fields...)
	}

	if n.path == "" {
		n.path = "/"
		if n.url != nil && n.url.Path != "" {
			n.path = n.url.Path
		}
	}
	n.source = deriveSource(n.source, n.referrer != nil)
	n.durationMs = b.DurationMs
	if n.durationMs == nil {
		n.durationMs = payloadInt(b.Payload, "durationMs", maxDurationMs)
	}
	n.scrollPercent = b.ScrollPercent
	if n.scrollPercent == nil {
		n.scrollPercent = payloadInt(b.Payload, "scrollPercent", maxScrollPct)
	}
	n.payload = sanitizeMap(b.Payload, 0)
	return n, nil
}

// deriveSource defaults to Direct, or Referral when a referrer is present. An explicit
// "direct" is overridden by a referrer; any other explicit source wins.
func deriveSource(explicit string, hasReferrer bool) string {
	if explicit == "" {
		if hasReferrer {
			return sourceReferral
		}
		return sourceDirect
	}
	if hasReferrer && strings.EqualFold(explicit, sourceDirect) {
		return sourceReferral
	}
	return explicit
}

// resolveCountry prefers an explicit country unless it is the "Unknown" placeholder.
func resolveCountry(explicit, located string) string {
	if explicit != "" && explicit != countryUnknown {
		return explicit
	}
	if located != "" {
		return located
	}
	return countryUnknown
}

// payloadInt reads a numeric payload key clamped to [0, max].
func payloadInt(payload map[string]any, key string, max int) *int {
	f, ok := payload[key].(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	v := int(math.Max(0, math.Min(float64(max), f)))
	return &v
}

func sanitizeMap(m map[string]any, depth int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = sanitize(v, depth+1)
	}
	return out
}

// sanitize keeps JSON-representable values and stringifies everything else.
// Containers nested deeper than maxPayloadDepth are replaced by a marker string.
func sanitize(v any, depth int) any {
	switch t := v.(type) {
	case nil, string, bool:
		return t
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return fmt.Sprint(t)
		}
		return t
	case float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return t
	case []any:
		if depth >= maxPayloadDepth {
			return truncatedValue
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sanitize(item, depth+1)
		}
		return out
	case map[string]any:
		if depth >= maxPayloadDepth {
			return truncatedValue
		}
		return sanitizeMap(t, depth)
	default:
		return fmt.Sprint(t)
	}
}
