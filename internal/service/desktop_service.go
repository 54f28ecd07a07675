package service

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"

	"github.com/rs/zerolog/log"
)

// Desktop describes one configured remote-desktop upstream.
type Desktop struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// DesktopService reverse-proxies dashboard iframes to the noVNC upstreams
// registered in config. Only named upstreams are reachable; an unknown name
// is rejected without dialing anything.
type DesktopService struct {
	desktops map[string]*desktopEntry
}

type desktopEntry struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
}

// NewDesktopService builds proxies for every configured upstream. Malformed
// upstream URLs fail startup rather than surfacing per-request.
func NewDesktopService(upstreams map[string]string) (*DesktopService, error) {
	desktops := make(map[string]*desktopEntry, len(upstreams))
	for name, raw := range upstreams {
		target, err := url.Parse(raw)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid desktop upstream %q: %q", name, raw)
		}
		proxy := httputil.NewSingleHostReverseProxy(target)
		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warn().Str("desktop", name).Err(err).Msg("Desktop proxy error")
			w.WriteHeader(http.StatusBadGateway)
		}
		desktops[name] = &desktopEntry{target: target, proxy: proxy}
	}
	return &DesktopService{desktops: desktops}, nil
}

// List returns the configured desktops sorted by name.
func (s *DesktopService) List() []Desktop {
	out := make([]Desktop, 0, len(s.desktops))
	for name, entry := range s.desktops {
		out = append(out, Desktop{Name: name, URL: entry.target.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Proxy returns the reverse proxy for a named desktop, or ok=false when the
// name is not registered.
func (s *DesktopService) Proxy(name string) (http.Handler, bool) {
	entry, ok := s.desktops[name]
	if !ok {
		return nil, false
	}
	return entry.proxy, true
}
