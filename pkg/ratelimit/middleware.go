package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Response headers describing the caller's budget.
const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Middleware rejects requests over the limit with 429. When Redis is
// unreachable the request is let through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := ClientID(r, l.cfg.TrustForwarded)

		state, err := l.Allow(r.Context(), client)
		if err != nil {
			limiterErrors.Inc()
			l.logger.Warn().Err(err).Str("client", client).Msg("Rate limit check failed - allowing request")
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set(HeaderLimit, strconv.Itoa(state.Limit))
		h.Set(HeaderRemaining, strconv.Itoa(state.Remaining()))
		h.Set(HeaderReset, strconv.FormatInt(state.ResetAt.Unix(), 10))

		if !state.Allowed() {
			retry := int(math.Ceil(state.TimeUntilReset(l.now()).Seconds()))
			h.Set("Retry-After", strconv.Itoa(retry))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(errorBody{Error: "Too many requests, please try again later"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientID identifies the caller of r. With trustForwarded the first
// X-Forwarded-For entry or X-Real-IP wins over the connection address.
func ClientID(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
