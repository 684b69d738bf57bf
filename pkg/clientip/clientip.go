package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the caller's address in canonical form, for use as a
// rate-limit key. Only r.RemoteAddr is trusted; proxy headers are ignored
// because the service is reached directly.
func RealClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return Canonical(host)
}

// Canonical unmaps IPv4-in-IPv6 addresses and drops zones so one client maps
// to one key. Unparseable input is returned trimmed.
func Canonical(host string) string {
	host = strings.TrimSpace(host)
	addr, err := netip.ParseAddr(strings.Trim(host, "[]"))
	if err != nil {
		return host
	}
	return addr.Unmap().WithZone("").String()
}
