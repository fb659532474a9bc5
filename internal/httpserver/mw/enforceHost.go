package mw

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

// hostRules holds exact hosts and "*.example.com" suffixes, lower-cased.
type hostRules struct {
	exact    map[string]bool
	suffixes []string
}

func newHostRules(allowed []string) hostRules {
	rules := hostRules{exact: make(map[string]bool, len(allowed))}
	for _, h := range allowed {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "":
		case strings.HasPrefix(h, "*."):
			rules.suffixes = append(rules.suffixes, h[1:])
		default:
			rules.exact[h] = true
		}
	}
	return rules
}

func (h hostRules) empty() bool { return len(h.exact) == 0 && len(h.suffixes) == 0 }

func (h hostRules) match(host string) bool {
	if name, _, err := net.SplitHostPort(host); err == nil {
		host = name
	}
	host = strings.ToLower(host)
	if h.exact[host] {
		return true
	}
	for _, s := range h.suffixes {
		if strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// EnforceHost rejects requests whose Host header is not in allowedHosts with
// 403. Ports are ignored and "*.example.com" matches any subdomain. An empty
// list disables the check.
func EnforceHost(allowedHosts []string, log logger.Logger) func(http.Handler) http.Handler {
	rules := newHostRules(allowedHosts)
	if rules.empty() {
		log.Debug("EnforceHost: no hosts configured, passthrough mode")
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rules.match(r.Host) {
				log.Debugf("EnforceHost: host %q rejected", r.Host)
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
