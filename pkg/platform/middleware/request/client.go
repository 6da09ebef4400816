package request

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"vcregistry/pkg/requestcontext"
)

// MaxForwardedHeaderLength bounds X-Forwarded-For and X-Real-IP values.
const MaxForwardedHeaderLength = 500

// ClientMetadata stores the client IP and User-Agent on the request context.
// Forwarding headers are honored only when the direct peer falls inside one
// of trustedProxies; with none configured they are ignored.
func ClientMetadata(trustedProxies []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustedProxies)
			ctx := requestcontext.WithClientMetadata(r.Context(), ip, r.Header.Get("User-Agent"))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := peerAddr(r.RemoteAddr)
	if peer == "" {
		return "unknown"
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if len(xff) > MaxForwardedHeaderLength {
			return peer
		}
		return forwardedClient(xff, peer, trusted)
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && len(xri) <= MaxForwardedHeaderLength {
		if _, err := netip.ParseAddr(xri); err == nil {
			return xri
		}
	}
	return peer
}

// forwardedClient walks X-Forwarded-For from the right, the end our own
// proxies append to, and returns the first hop that is not a trusted proxy.
// Entries left of that hop are client-supplied and never used. A malformed
// entry stops the walk at the last address a trusted proxy vouched for.
func forwardedClient(xff, peer string, trusted []netip.Prefix) string {
	hops := strings.Split(xff, ",")
	client := peer
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return client
		}
		client = addr.Unmap().String()
		if !containsAddr(trusted, addr) {
			return client
		}
	}
	return client
}

func peerAddr(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.Trim(remoteAddr, "[]")
	}
	return host
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	return containsAddr(trusted, addr)
}

func containsAddr(trusted []netip.Prefix, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
