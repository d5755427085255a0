package imagehost

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
)

// maxRedirects bounds redirect chains followed while downloading.
const maxRedirects = 5

var (
	errBlockedAddress = errors.New("address is not publicly routable")
	errBadScheme      = errors.New("only http and https URLs can be fetched")
)

// reserved ranges not covered by the netip predicates.
var reserved = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"), // carrier-grade NAT
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b::/96"), // NAT64 can reach private v4
}

// addressGuard rejects loopback, private, link-local (cloud metadata) and
// other non-public addresses. allowed holds operator exceptions.
type addressGuard struct {
	allowed []netip.Prefix
}

// newAddressGuard parses CIDRs or single IPs; invalid entries are skipped.
func newAddressGuard(allowed []string) *addressGuard {
	g := &addressGuard{}
	for _, a := range allowed {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if p, err := netip.ParsePrefix(a); err == nil {
			g.allowed = append(g.allowed, p.Masked())
			continue
		}
		if ip, err := netip.ParseAddr(a); err == nil {
			ip = ip.Unmap()
			g.allowed = append(g.allowed, netip.PrefixFrom(ip, ip.BitLen()))
			continue
		}
		slog.Warn("imagehost: invalid allowed network, skipping", "network", a)
	}
	return g
}

func (g *addressGuard) permits(ip netip.Addr) bool {
	ip = ip.Unmap()
	for _, p := range g.allowed {
		if p.Contains(ip) {
			return true
		}
	}
	return isPublic(ip)
}

func isPublic(ip netip.Addr) bool {
	if !ip.IsValid() || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() {
		return false
	}
	for _, p := range reserved {
		if p.Contains(ip) {
			return false
		}
	}
	return true
}

// checkURL validates the scheme and, for IP-literal hosts, the address.
// Hostnames are checked after resolution by the dialer.
func (g *addressGuard) checkURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", errBadScheme, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: empty host", errBlockedAddress)
	}
	if ip, err := netip.ParseAddr(u.Hostname()); err == nil && !g.permits(ip) {
		return fmt.Errorf("%w: %s", errBlockedAddress, ip)
	}
	return nil
}

// control runs after DNS resolution on the exact address being dialled, so
// rebinding a name to an internal address between check and connect fails.
func (g *addressGuard) control(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", errBlockedAddress, address)
	}
	if !g.permits(ap.Addr()) {
		return fmt.Errorf("%w: %s", errBlockedAddress, ap.Addr())
	}
	return nil
}

// client returns an HTTP client whose every connection and redirect passes
// the guard.
func (g *addressGuard) client(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   g.control,
	}
	transport := &http.Transport{
		Proxy:                 nil, // a proxy would dial past the guard
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects (max %d)", maxRedirects)
			}
			if err := g.checkURL(req.URL); err != nil {
				return fmt.Errorf("redirect blocked: %w", err)
			}
			return nil
		},
	}
}
