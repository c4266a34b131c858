package routes

import (
	"net/http"

	"gamezone/internal/cache"
	"gamezone/internal/steam"
	"gamezone/internal/upstream"
)

// handleProfile serves the session user's profile, or any subject's when a
// validated ?steamid= is given.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	steamID := r.URL.Query().Get("steamid")
	if steamID != "" {
		if !steam.ValidID(steamID) {
			s.fail(w, http.StatusBadRequest, "invalid steam id")
			return
		}
	} else {
		var ok bool
		steamID, ok = s.linkedSteamID(w, r)
		if !ok {
			return
		}
	}
	if !s.Steam.Configured() {
		s.fail(w, http.StatusInternalServerError, "steam api is not configured")
		return
	}

	key := cache.Key("profile", steamID)
	if v, ok := s.Cache.Lookup(key, steam.ProfileTTL); ok {
		s.ok(w, map[string]any{"profile": v.(*steam.Profile), "fromCache": true})
		return
	}

	profile, kind, err := s.Steam.PlayerSummary(r.Context(), steamID)
	switch kind {
	case upstream.Success:
		s.Cache.Put(key, profile)
		s.ok(w, map[string]any{"profile": profile, "fromCache": false})
	case upstream.Empty:
		s.fail(w, http.StatusNotFound, "profile not found")
	case upstream.Forbidden:
		s.ok(w, map[string]any{"profile": nil, "message": "profile is private"})
	default:
		s.Log.Error().Err(err).Str("steamId", steamID).Msg("fetch player summary")
		s.fail(w, http.StatusInternalServerError, "failed to fetch profile")
	}
}
