package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/identity"
)

// ClientIP stores the caller's address and User-Agent in the request
// context. Forwarding headers are honoured only with trustProxy. The last
// X-Forwarded-For hop is used: it is the one the trusted proxy appended,
// while earlier entries come from the client.
func ClientIP(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := identity.WithClientIP(r.Context(), clientAddr(r, trustProxy))
			ctx = identity.WithUserAgent(ctx, r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
			hops := values[len(values)-1]
			last := hops[strings.LastIndex(hops, ",")+1:]
			if ip := net.ParseIP(strings.TrimSpace(last)); ip != nil {
				return ip.String()
			}
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
