// Package tracking ingests public analytics beacons. Requests are scoped by site id, not identity;
// the URL hostname check is the only tenant-integrity enforcement on this path.
package tracking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/internal/apperr"
	"github.com/lumen-analytics/backend/internal/geo"
	"github.com/lumen-analytics/backend/internal/metrics"
	"github.com/lumen-analytics/backend/internal/models"
)

const (
	msgSiteNotFound   = "Site not found"
	msgDomainMismatch = "Tracking domain mismatch"

	// LiveEvent is the realtime event name for ingested beacons.
	LiveEvent = "event"
)

// SiteLookup resolves the beacon's site; *sites.Repository implements it.
type SiteLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Site, error)
}

// Store appends ingestion rows; *Repository implements it.
type Store interface {
	AppendEvent(ctx context.Context, e *models.AnalyticsEvent) error
	AppendAudit(ctx context.Context, a *models.AuditLog) error
}

// TxRunner runs fn in one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CountryLookup maps a client address to a country code, "" when unknown; *geo.Resolver implements it.
type CountryLookup interface {
	Country(ctx context.Context, addr netip.Addr) string
}

// Publisher fans an event out to live listeners of a workspace; *realtime.Hub implements it.
type Publisher interface {
	PublishWorkspace(workspaceID uuid.UUID, event string, payload interface{})
}

// Client is the transport context of a beacon.
type Client struct {
	Headers   http.Header
	UserAgent string
}

// Service validates, normalizes and stores beacons.
type Service struct {
	sites     SiteLookup
	store     Store
	tx        TxRunner
	countries CountryLookup
	live      Publisher
	logger    *zap.Logger
}

// NewService creates a tracking service. countries and live may be nil.
func NewService(sites SiteLookup, store Store, tx TxRunner, countries CountryLookup, live Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sites: sites, store: store, tx: tx, countries: countries, live: live, logger: logger}
}

// auditMetadata is the enriched ingestion context kept for traceability.
type auditMetadata struct {
	SiteDomain string         `json:"siteDomain"`
	URL        *string        `json:"url"`
	Path       string         `json:"path"`
	Source     string         `json:"source"`
	Country    string         `json:"country"`
	IP         *string        `json:"ip"`
	Referrer   *string        `json:"referrer"`
	Payload    map[string]any `json:"payload"`
	UserAgent  string         `json:"userAgent"`
}

// LiveMessage is what live listeners receive for each stored event.
type LiveMessage struct {
	ID        uuid.UUID `json:"id"`
	SiteID    uuid.UUID `json:"siteId"`
	Event     string    `json:"event"`
	Path      string    `json:"path"`
	Source    string    `json:"source"`
	Country   string    `json:"country"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ingest stores one event and its audit row atomically, then publishes it live.
// Beacons are accepted for a site in any status.
func (s *Service) Ingest(ctx context.Context, b Beacon, client Client) (*models.AnalyticsEvent, error) {
	n, err := b.normalize()
	if err != nil {
		metrics.BeaconsRejected.WithLabelValues("validation").Inc()
		return nil, err
	}
	site, err := s.sites.GetByID(ctx, b.SiteID)
	if err != nil {
		return nil, err
	}
	if site == nil {
		metrics.BeaconsRejected.WithLabelValues("unknown_site").Inc()
		return nil, apperr.NotFound(msgSiteNotFound)
	}
	if n.url != nil && strings.ToLower(n.url.Hostname()) != site.Domain {
		metrics.BeaconsRejected.WithLabelValues("domain_mismatch").Inc()
		s.logger.Warn("beacon domain mismatch",
			zap.String("site_id", site.ID.String()),
			zap.String("host", n.url.Hostname()),
		)
		return nil, apperr.Validation(msgDomainMismatch)
	}

	var ip *string
	located := ""
	if addr, ok := geo.ClientIP(client.Headers); ok {
		v := addr.String()
		ip = &v
		if s.countries != nil && (n.country == "" || n.country == countryUnknown) {
			located = s.countries.Country(ctx, addr)
		}
	}
	country := resolveCountry(n.country, located)

	event := &models.AnalyticsEvent{
		ID:            uuid.New(),
		WorkspaceID:   site.WorkspaceID,
		SiteID:        site.ID,
		EventName:     strings.ToLower(n.event),
		Path:          n.path,
		Source:        n.source,
		Country:       country,
		Referrer:      n.referrer,
		VisitorID:     n.visitorID,
		SessionID:     n.sessionID,
		DurationMs:    n.durationMs,
		ScrollPercent: n.scrollPercent,
		Bounced:       n.bounced,
	}
	meta := auditMetadata{
		SiteDomain: site.Domain,
		Path:       n.path,
		Source:     n.source,
		Country:    country,
		IP:         ip,
		Referrer:   n.referrer,
		Payload:    n.payload,
		UserAgent:  userAgent(client.UserAgent),
	}
	if n.url != nil {
		raw := n.url.String()
		meta.URL = &raw
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	audit := &models.AuditLog{
		ID:          uuid.New(),
		WorkspaceID: site.WorkspaceID,
		Action:      "TRACK_" + strings.ToUpper(n.event),
		Resource:    "SITE",
		ResourceID:  site.ID.String(),
		Metadata:    metaJSON,
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.AppendEvent(ctx, event); err != nil {
			return err
		}
		return s.store.AppendAudit(ctx, audit)
	})
	if err != nil {
		return nil, err
	}

	metrics.BeaconsIngested.WithLabelValues(event.EventName).Inc()
	if s.live != nil {
		s.live.PublishWorkspace(site.WorkspaceID, LiveEvent, LiveMessage{
			ID:        event.ID,
			SiteID:    event.SiteID,
			Event:     event.EventName,
			Path:      event.Path,
			Source:    event.Source,
			Country:   event.Country,
			CreatedAt: event.CreatedAt,
		})
	}
	return event, nil
}

func userAgent(ua string) string {
	if ua == "" {
		return "unknown"
	}
	return ua
}
