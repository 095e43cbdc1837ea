package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// parsePrefixes parses CIDRs, logging and skipping malformed entries.
func parsePrefixes(cidrs []string, logger *slog.Logger) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			logger.Warn("invalid CIDR, skipping",
				slog.String("cidr", cidr),
				slog.String("error", err.Error()),
			)
			continue
		}
		prefixes = append(prefixes, p.Masked())
	}
	return prefixes
}

// peerAddr parses the socket address of a request, with or without a port.
// IPv4-mapped IPv6 addresses are unmapped.
func peerAddr(remoteAddr string) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIPKey buckets requests by client address. The peer address is used
// unless it is one of trustedProxies; only then are X-Forwarded-For (the
// right-most hop outside trustedProxies) and X-Real-IP consulted.
func ClientIPKey(trustedProxies []string, logger *slog.Logger) KeyFunc {
	trusted := parsePrefixes(trustedProxies, logger)

	return func(r *http.Request) string {
		peer, ok := peerAddr(r.RemoteAddr)
		if !ok {
			return r.RemoteAddr
		}
		if containsAddr(trusted, peer) {
			if ip, ok := forwardedFor(r, trusted); ok {
				return ip.String()
			}
		}
		return peer.String()
	}
}

func forwardedFor(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			addr = addr.Unmap()
			if !containsAddr(trusted, addr) {
				return addr, true
			}
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(xri)); err == nil {
			return addr.Unmap(), true
		}
	}
	return netip.Addr{}, false
}
