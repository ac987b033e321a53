package utils

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP returns the first address of X-Forwarded-For, then
// X-Real-IP, then the connection's remote host.
func RealClientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		first, _, _ := strings.Cut(xfwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if xreal := strings.TrimSpace(r.Header.Get("X-Real-IP")); xreal != "" {
		return xreal
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
