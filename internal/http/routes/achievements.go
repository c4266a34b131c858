package routes

import (
	"net/http"
	"strconv"

	"gamezone/internal/cache"
	"gamezone/internal/steam"
	"gamezone/internal/upstream"
)

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	appIDStr := r.URL.Query().Get("appid")
	appID, err := strconv.Atoi(appIDStr)
	if err != nil || appID <= 0 {
		s.fail(w, http.StatusBadRequest, "invalid app id")
		return
	}

	steamID, ok := s.linkedSteamID(w, r)
	if !ok {
		return
	}
	if !s.Steam.Configured() {
		s.fail(w, http.StatusInternalServerError, "steam api is not configured")
		return
	}

	// achievements are keyed by subject x game
	key := cache.Key("ach", steamID, appIDStr)
	if v, ok := s.Cache.Lookup(key, steam.AchievementsTTL); ok {
		s.ok(w, map[string]any{"achievements": v.(steam.AchievementSummary), "fromCache": true})
		return
	}

	summary, kind, err := s.Steam.Achievements(r.Context(), steamID, appID)
	switch kind {
	case upstream.Success:
		s.Cache.Put(key, summary)
		s.ok(w, map[string]any{"achievements": summary, "fromCache": false})
	case upstream.Empty:
		// games without stats answer success with a zeroed summary
		s.ok(w, map[string]any{"achievements": summary})
	case upstream.Forbidden:
		s.ok(w, map[string]any{"achievements": summary, "message": "profile is private"})
	default:
		s.Log.Error().Err(err).Str("steamId", steamID).Int("appId", appID).Msg("fetch achievements")
		s.fail(w, http.StatusInternalServerError, "failed to fetch achievements")
	}
}
