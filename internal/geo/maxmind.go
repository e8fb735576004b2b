package geo

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/oschwald/geoip2-golang"
)

// MaxMind reads a local GeoLite2/GeoIP2 country database.
type MaxMind struct {
	db *geoip2.Reader
}

// OpenMaxMind opens the .mmdb file at path.
func OpenMaxMind(path string) (*MaxMind, error) {
	if path == "" {
		return nil, fmt.Errorf("maxmind: GEOIP_DB_PATH is not set")
	}
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("maxmind open %s: %w", path, err)
	}
	return &MaxMind{db: db}, nil
}

func (m *MaxMind) Name() string { return "maxmind" }

func (m *MaxMind) Country(_ context.Context, addr netip.Addr) (string, error) {
	rec, err := m.db.Country(addr.AsSlice())
	if err != nil {
		return "", fmt.Errorf("maxmind lookup: %w", err)
	}
	return rec.Country.IsoCode, nil
}

// Close releases the database.
func (m *MaxMind) Close() error {
	return m.db.Close()
}
