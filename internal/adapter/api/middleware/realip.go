package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var (
	xForwardedFor = http.CanonicalHeaderKey("X-Forwarded-For")
	xRealIP       = http.CanonicalHeaderKey("X-Real-IP")
)

// RealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only
// when the connection comes from one of the trusted proxy CIDRs. Requests
// from anywhere else keep their socket address. Invalid CIDRs are skipped.
func RealIP(trustedProxies []string) func(http.Handler) http.Handler {
	var trusted []netip.Prefix
	for _, cidr := range trustedProxies {
		if p, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err == nil {
			trusted = append(trusted, p.Masked())
		}
	}
	isTrusted := func(addr netip.Addr) bool {
		for _, p := range trusted {
			if p.Contains(addr.Unmap()) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, ok := parseAddr(clientIP(r))
			if ok && isTrusted(peer) {
				if ip := forwardedIP(r, isTrusted); ip != "" {
					r.RemoteAddr = ip
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedIP walks X-Forwarded-For from the right and returns the first hop
// that is not itself a trusted proxy, falling back to X-Real-IP.
func forwardedIP(r *http.Request, isTrusted func(netip.Addr) bool) string {
	if xff := r.Header.Get(xForwardedFor); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, ok := parseAddr(strings.TrimSpace(hops[i]))
			if !ok {
				return ""
			}
			if !isTrusted(addr) {
				return addr.String()
			}
		}
	}
	if addr, ok := parseAddr(strings.TrimSpace(r.Header.Get(xRealIP))); ok {
		return addr.String()
	}
	return ""
}

func parseAddr(s string) (netip.Addr, bool) {
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
