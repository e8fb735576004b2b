// Package analytics builds the workspace dashboard summary.
package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/lumen-analytics/backend/internal/models"
)

// Window is how far back the dashboard looks, counted as the last 30 calendar days including today.
const Window = 29 * 24 * time.Hour

// SiteTraffic is page_view volume for one site.
type SiteTraffic struct {
	Pageviews int
	Visitors  int
}

// Store is the dashboard query surface; *Repository implements it.
type Store interface {
	Counts(ctx context.Context, workspaceID uuid.UUID, now time.Time) (members, pendingInvites int, err error)
	Sites(ctx context.Context, workspaceID uuid.UUID) ([]*models.Site, error)
	Traffic(ctx context.Context, workspaceID uuid.UUID, since time.Time) (map[uuid.UUID]SiteTraffic, int, error)
}

// SiteStat is one row of the per-site table.
type SiteStat struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	Domain    string            `json:"domain"`
	Status    models.SiteStatus `json:"status"`
	Pageviews int               `json:"pageviews"`
	Visitors  int               `json:"visitors"`
}

// Summary is the GET /workspaces/:id/summary payload.
type Summary struct {
	WorkspaceID      uuid.UUID  `json:"workspaceId"`
	Since            time.Time  `json:"since"`
	SiteCount        int        `json:"siteCount"`
	MemberCount      int        `json:"memberCount"`
	PendingInvites   int        `json:"pendingInvites"`
	Pageviews        int        `json:"pageviews"`
	UniqueVisitors   int        `json:"uniqueVisitors"`
	SitesWithTraffic int        `json:"sitesWithTraffic"`
	CoveragePercent  int        `json:"coveragePercent"`
	Sites            []SiteStat `json:"sites"`
}

// Service computes dashboard summaries. Authorization is applied by the route guard.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates an analytics service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Summary returns workspace totals and per-site traffic sorted by pageviews, highest first.
func (s *Service) Summary(ctx context.Context, workspaceID uuid.UUID) (*Summary, error) {
	now := s.now()
	since := now.Add(-Window)

	members, invites, err := s.store.Counts(ctx, workspaceID, now)
	if err != nil {
		return nil, err
	}
	sites, err := s.store.Sites(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	traffic, visitors, err := s.store.Traffic(ctx, workspaceID, since)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		WorkspaceID:    workspaceID,
		Since:          since,
		SiteCount:      len(sites),
		MemberCount:    members,
		PendingInvites: invites,
		UniqueVisitors: visitors,
		Sites:          make([]SiteStat, 0, len(sites)),
	}
	for _, site := range sites {
		t := traffic[site.ID]
		out.Pageviews += t.Pageviews
		if t.Pageviews > 0 {
			out.SitesWithTraffic++
		}
		out.Sites = append(out.Sites, SiteStat{
			ID:        site.ID,
			Name:      site.Name,
			Domain:    site.Domain,
			Status:    site.Status,
			Pageviews: t.Pageviews,
			Visitors:  t.Visitors,
		})
	}
	sort.SliceStable(out.Sites, func(i, j int) bool {
		return out.Sites[i].Pageviews > out.Sites[j].Pageviews
	})
	if out.SiteCount > 0 {
		out.CoveragePercent = (out.SitesWithTraffic*100 + out.SiteCount/2) / out.SiteCount
	}
	return out, nil
}
