package routes

import (
	"net/http"
	"strconv"
	"strings"

	"gamezone/internal/cache"
	"gamezone/internal/ggdeals"
	"gamezone/internal/upstream"
)

const maxPriceIDs = 100

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	ids, ok := parseAppIDs(r.URL.Query().Get("ids"))
	if !ok {
		s.fail(w, http.StatusBadRequest, "ids must be a comma-separated list of app ids")
		return
	}
	if !s.Deals.Configured() {
		s.fail(w, http.StatusInternalServerError, "pricing api is not configured")
		return
	}

	// one entry per requested set; permutations share it
	key := cache.SetKey("prices", ids)
	if v, ok := s.Cache.Lookup(key, ggdeals.PricesTTL); ok {
		quotes := v.(map[string]ggdeals.Quote)
		s.ok(w, map[string]any{"prices": quotes, "total": len(quotes), "fromCache": true})
		return
	}

	quotes, kind, err := s.Deals.Prices(r.Context(), ids)
	switch kind {
	case upstream.Success:
		s.Cache.Put(key, quotes)
		s.ok(w, map[string]any{"prices": quotes, "total": len(quotes), "fromCache": false})
	case upstream.Empty:
		s.ok(w, map[string]any{
			"prices": map[string]ggdeals.Quote{}, "total": 0,
			"message": "no price data available",
		})
	default:
		// the pricing upstream has no private-profile notion; anything else
		// is a server-side failure
		s.Log.Error().Err(err).Strs("appIds", ids).Msg("fetch prices")
		s.fail(w, http.StatusInternalServerError, "failed to fetch prices")
	}
}

func parseAppIDs(raw string) ([]string, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) > maxPriceIDs {
		return nil, false
	}
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			return nil, false
		}
		ids = append(ids, p)
	}
	return ids, true
}
