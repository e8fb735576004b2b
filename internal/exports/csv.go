package exports

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/models"
)

// EventSource streams events for one site.
type EventSource interface {
	EachEvent(ctx context.Context, siteID uuid.UUID, from, to *time.Time, fn func(*models.AnalyticsEvent) error) error
}

// Header is the first CSV row.
var Header = []string{
	"id", "created_at", "event", "path", "source", "country", "referrer",
	"visitor_id", "session_id", "duration_ms", "scroll_percent", "bounced",
}

// WriteCSV writes the export's events to w and returns the number of data rows.
func WriteCSV(ctx context.Context, w io.Writer, src EventSource, e *models.Export) (int64, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}
	var n int64
	err := src.EachEvent(ctx, e.SiteID, e.From, e.To, func(ev *models.AnalyticsEvent) error {
		n++
		return cw.Write([]string{
			ev.ID.String(),
			ev.CreatedAt.UTC().Format(time.RFC3339),
			ev.EventName,
			ev.Path,
			ev.Source,
			ev.Country,
			str(ev.Referrer),
			str(ev.VisitorID),
			str(ev.SessionID),
			num(ev.DurationMs),
			num(ev.ScrollPercent),
			strconv.FormatBool(ev.Bounced),
		})
	})
	if err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func num(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
