package ratelimit

import (
	"collab-gateway/domain"
	"collab-gateway/domain/event"
	"collab-gateway/errors"
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"

	headerForwardedFor = "X-Forwarded-For"
	headerRealIP       = "X-Real-IP"
)

// Subject names who a request is accounted to.
type Subject func(r *http.Request) string

// Middleware is the HTTP twin of the gateway quota: it accounts every request
// against class, keyed by subject.
func (l *Ledger) Middleware(class domain.LimitClass, subject Subject, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Allow(w, r, class, subject(r)) {
			next.ServeHTTP(w, r)
		}
	})
}

// Allow accounts one request of subjectKey and sets the quota headers.
// When the quota is exceeded it answers 429 itself and returns false.
func (l *Ledger) Allow(w http.ResponseWriter, r *http.Request, class domain.LimitClass, subjectKey string) bool {
	decision := l.Check(r.Context(), class, subjectKey)
	if decision.Limit > 0 {
		w.Header().Set(HeaderLimit, strconv.Itoa(decision.Limit))
		w.Header().Set(HeaderRemaining, strconv.Itoa(decision.Remaining))
		w.Header().Set(HeaderReset, strconv.FormatInt(decision.ResetAt.Unix(), 10))
	}
	if decision.Allowed {
		return true
	}
	retryAfter := decision.RetryAfter(l.Now())
	w.Header().Set(HeaderRetryAfter, strconv.Itoa(int(retryAfter.Seconds())))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(event.ErrorPayload{
		Message: "too many requests, retry later",
		Code:    errors.CodeQuotaExceeded,
	})
	return false
}

// ClientAddress keys a request by the client IP. Forwarding headers are read
// only when the direct peer belongs to trusted; the client is then the
// right-most X-Forwarded-For hop that is not itself a trusted proxy.
func ClientAddress(trusted []netip.Prefix) Subject {
	isTrusted := func(addr netip.Addr) bool {
		return lo.ContainsBy(trusted, func(p netip.Prefix) bool { return p.Contains(addr) })
	}
	return func(r *http.Request) string {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		peer, err := netip.ParseAddr(host)
		if err != nil || !isTrusted(peer.Unmap()) {
			return host
		}

		if forwarded := r.Header.Values(headerForwardedFor); len(forwarded) > 0 {
			hops := strings.Split(strings.Join(forwarded, ","), ",")
			client := ""
			for i := len(hops) - 1; i >= 0; i-- {
				addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
				if err != nil {
					break
				}
				client = addr.Unmap().String()
				if !isTrusted(addr.Unmap()) {
					break
				}
			}
			if client != "" {
				return client
			}
		}
		if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get(headerRealIP))); err == nil {
			return addr.Unmap().String()
		}
		return host
	}
}
