package capability

import (
	"net/url"

	"trendsheet-go/internal/config"
)

// Set is the dependency-capability report built once at startup and served
// by /health. Requests are rejected with 503 while any capability is down
// instead of re-probing per request.
type Set struct {
	checks map[string]bool
}

// Probe evaluates the server's dependencies against the loaded config.
func Probe(cfg *config.Config) *Set {
	checks := map[string]bool{
		"provider": providerUsable(cfg.Provider),
		"engine":   cfg.Engine.WidthLimit >= 2,
	}
	return &Set{checks: checks}
}

func providerUsable(p config.ProviderConfig) bool {
	if p.Endpoint == "" {
		return false
	}
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Ready reports whether every capability is available.
func (s *Set) Ready() bool {
	for _, ok := range s.checks {
		if !ok {
			return false
		}
	}
	return true
}

// Map returns the per-capability availability for the health payload.
func (s *Set) Map() map[string]bool {
	out := make(map[string]bool, len(s.checks))
	for k, v := range s.checks {
		out[k] = v
	}
	return out
}
