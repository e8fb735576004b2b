package geo

import (
	"net/http"
	"net/netip"
	"strings"
)

// IPHeaders are the proxy headers consulted for the client address, in priority order.
var IPHeaders = []string{
	"X-Forwarded-For",
	"X-Real-Ip",
	"Cf-Connecting-Ip",
	"X-Client-Ip",
	"X-Cluster-Client-Ip",
	"Fastly-Client-Ip",
	"True-Client-Ip",
}

// ClientIP returns the first public address found in IPHeaders. For comma-separated
// values only the leftmost entry is considered.
func ClientIP(h http.Header) (netip.Addr, bool) {
	for _, key := range IPHeaders {
		raw := h.Get(key)
		if raw == "" {
			continue
		}
		first, _, _ := strings.Cut(raw, ",")
		addr, err := netip.ParseAddr(strings.TrimSpace(first))
		if err != nil {
			continue
		}
		addr = addr.Unmap()
		if IsPublic(addr) {
			return addr, true
		}
	}
	return netip.Addr{}, false
}

// IsPublic rejects loopback, RFC 1918, unique-local and link-local addresses.
func IsPublic(addr netip.Addr) bool {
	if !addr.IsValid() {
		return false
	}
	return !(addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified())
}
