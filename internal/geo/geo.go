// Package geo resolves a beacon's client address to an ISO country code.
package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"go.uber.org/zap"

	"github.com/lumen-analytics/backend/config"
	"github.com/lumen-analytics/backend/internal/metrics"
)

// Locator maps a public address to an ISO 3166-1 alpha-2 code. An empty code with a nil
// error means the address is not in the provider's data.
type Locator interface {
	Country(ctx context.Context, addr netip.Addr) (string, error)
	Name() string
}

// Nop is used when no provider is configured.
type Nop struct{}

func (Nop) Country(context.Context, netip.Addr) (string, error) { return "", nil }
func (Nop) Name() string { return "none" }

// Resolver turns request headers into a country code, best effort.
type Resolver struct {
	locator Locator
	logger  *zap.Logger
}

// NewResolver wraps locator; a nil locator resolves nothing.
func NewResolver(locator Locator, logger *zap.Logger) *Resolver {
	if locator == nil {
		locator = Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{locator: locator, logger: logger}
}

// CountryFromHeaders returns the country of the first public client address, or "".
func (r *Resolver) CountryFromHeaders(ctx context.Context, h http.Header) string {
	addr, ok := ClientIP(h)
	if !ok {
		return ""
	}
	return r.Country(ctx, addr)
}

// Country looks addr up and returns "" when it is unknown or the lookup fails.
// Lookup failures never fail the caller.
func (r *Resolver) Country(ctx context.Context, addr netip.Addr) string {
	if !IsPublic(addr) {
		return ""
	}
	code, err := r.locator.Country(ctx, addr)
	if err != nil {
		metrics.GeoLookups.WithLabelValues(r.locator.Name(), "error").Inc()
		r.logger.Debug("geo lookup failed", zap.String("provider", r.locator.Name()), zap.Error(err))
		return ""
	}
	if code == "" {
		metrics.GeoLookups.WithLabelValues(r.locator.Name(), "miss").Inc()
		return ""
	}
	metrics.GeoLookups.WithLabelValues(r.locator.Name(), "hit").Inc()
	return code
}

// New builds the configured provider behind an LRU cache. The returned close func releases
// the provider's resources.
func New(cfg config.GeoConfig, logger *zap.Logger) (Locator, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Provider {
	case "", "none":
		return Nop{}, noop, nil
	case "maxmind":
		mm, err := OpenMaxMind(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return NewCached(mm, cfg.CacheSize, time.Hour), mm.Close, nil
	case "ipapi":
		api := NewIPAPI(cfg.IPAPIURL, cfg.Timeout, logger)
		return NewCached(api, cfg.CacheSize, time.Hour), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown geo provider %q", cfg.Provider)
	}
}
