package mw

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/soundgate/internal/logger"
	"github.com/MrSnakeDoc/soundgate/internal/utils"
)

// SpeakerLookup reports whether an IP belongs to a registered speaker.
type SpeakerLookup interface {
	HasIP(ip string) bool
}

// exemptPrefixes are reachable from anywhere. /mgmt has its own auth.
var exemptPrefixes = []string{"/mgmt", "/healthz", "/readyz", "/metrics"}

func exempt(path string) bool {
	if path == "/" {
		return true
	}
	for _, p := range exemptPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// SpeakerAllowlist restricts protocol routes to registered speakers,
// loopback, private LAN ranges and the extra CIDRs given. Private ranges
// are allowed because speakers behind NAT show up with the router's LAN IP.
func SpeakerAllowlist(speakers SpeakerLookup, extra []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(append(append([]string{}, utils.PrivateNetworks...), extra...))
	log.Debugf("SpeakerAllowlist: initialized with %d extra rules, trustProxy=%v", len(extra), trustProxy)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			ip := utils.ClientIP(r, trustProxy)
			if m.Allow(ip) || speakers.HasIP(ip) {
				next.ServeHTTP(w, r)
				return
			}

			log.Warn("blocked request from unknown speaker",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.String("ip", ip))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Forbidden: unknown speaker IP"})
		})
	}
}
