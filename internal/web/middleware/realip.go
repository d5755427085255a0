package middleware

import (
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/d21hq/d21/internal/core"
)

// TrustedRealIP rewrites r.RemoteAddr to the bare client IP. X-Real-IP and
// X-Forwarded-For are honoured ONLY when the connection comes from one of
// trustedCIDRs; otherwise the socket address is used, so clients cannot spoof
// their way past rate limiting or into the audit log.
//
// The port is always stripped, leaving a value the audit_log inet column
// accepts.
func TrustedRealIP(trustedCIDRs []string) func(http.Handler) http.Handler {
	var trusted []netip.Prefix
	for _, cidr := range trustedCIDRs {
		cidr = strings.TrimSpace(cidr)
		if cidr == "" {
			continue
		}
		if p, err := netip.ParsePrefix(cidr); err == nil {
			trusted = append(trusted, p.Masked())
			continue
		}
		// Single IP, e.g. "127.0.0.1" instead of "127.0.0.1/32"
		if addr, err := netip.ParseAddr(cidr); err == nil {
			addr = addr.Unmap()
			trusted = append(trusted, netip.PrefixFrom(addr, addr.BitLen()))
			continue
		}
		slog.Warn("realip: invalid trusted proxy CIDR, skipping", "cidr", cidr)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remote, ok := extractIP(r.RemoteAddr)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			client := remote
			if isTrusted(remote, trusted) {
				if ip, ok := headerIP(r); ok {
					client = ip
				}
			}
			r.RemoteAddr = client.String()
			next.ServeHTTP(w, r)
		})
	}
}

// headerIP returns X-Real-IP, else the first X-Forwarded-For hop.
func headerIP(r *http.Request) (netip.Addr, bool) {
	if rip := strings.TrimSpace(r.Header.Get("X-Real-IP")); rip != "" {
		if ip, err := netip.ParseAddr(rip); err == nil {
			return ip.Unmap(), true
		}
		return netip.Addr{}, false
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return ip.Unmap(), true
		}
	}
	return netip.Addr{}, false
}

// extractIP parses an IP address from a host:port string or plain IP.
func extractIP(addr string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(addr); err == nil {
		return ap.Addr().Unmap(), true
	}
	if ip, err := netip.ParseAddr(addr); err == nil {
		return ip.Unmap(), true
	}
	return netip.Addr{}, false
}

// isTrusted checks if an IP is within any of the trusted networks.
func isTrusted(ip netip.Addr, trusted []netip.Prefix) bool {
	for _, p := range trusted {
		if p.Contains(ip) {
			return true
		}
	}
	return false
}

// RequestMetadata copies the client IP and User-Agent onto the context for
// audit entries. It must run after TrustedRealIP.
func RequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithIPAddress(r.Context(), r.RemoteAddr)
		ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
