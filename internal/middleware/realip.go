package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the caller's IP for rate-limit keying: the first hop
// of X-Forwarded-For when a proxy set it, otherwise the connection's
// remote address without the port.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
