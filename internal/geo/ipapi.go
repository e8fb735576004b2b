package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// IPAPI queries an ip-api.com compatible JSON endpoint behind a circuit breaker.
type IPAPI struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

type ipAPIResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	CountryCode string `json:"countryCode"`
}

// NewIPAPI creates a client for baseURL, e.g. http://ip-api.com/json/.
func NewIPAPI(baseURL string, timeout time.Duration, logger *zap.Logger) *IPAPI {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "geo-ipapi",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("circuit_breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &IPAPI{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		client:  &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *IPAPI) Name() string { return "ipapi" }

// Country returns "" for addresses the service reports as failed (reserved, private, unknown).
// Transport failures and non-200 responses count against the breaker.
func (p *IPAPI) Country(ctx context.Context, addr netip.Addr) (string, error) {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetch(ctx, addr)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("ipapi unavailable: %w", err)
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (p *IPAPI) fetch(ctx context.Context, addr netip.Addr) (string, error) {
	url := p.baseURL + addr.String() + "?fields=status,message,countryCode"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("ipapi request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipapi call: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipapi status %d", resp.StatusCode)
	}
	var body ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("ipapi decode: %w", err)
	}
	if body.Status != "success" {
		return "", nil
	}
	return strings.ToUpper(body.CountryCode), nil
}
