// Package network provides network-related utilities.
package network

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from the request.
//
// The first address in X-Forwarded-For wins, then X-Real-IP, then
// RemoteAddr with any port removed. IPv6 addresses are returned without
// brackets so the same client always maps to the same key.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return stripPort(ip)
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return stripPort(xri)
	}

	return stripPort(r.RemoteAddr)
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
