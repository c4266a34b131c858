package routes

import (
	"net/http"

	"gamezone/internal/cache"
	"gamezone/internal/steam"
	"gamezone/internal/upstream"
)

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	steamID, ok := s.linkedSteamID(w, r)
	if !ok {
		return
	}
	if !s.Steam.Configured() {
		s.fail(w, http.StatusInternalServerError, "steam api is not configured")
		return
	}

	key := cache.Key("games", steamID)
	if v, ok := s.Cache.Lookup(key, steam.GamesTTL); ok {
		games := v.([]steam.Game)
		s.ok(w, map[string]any{"games": games, "total": len(games), "fromCache": true})
		return
	}

	games, kind, err := s.Steam.OwnedGames(r.Context(), steamID)
	switch kind {
	case upstream.Success:
		s.Cache.Put(key, games)
		s.ok(w, map[string]any{"games": games, "total": len(games), "fromCache": false})
	case upstream.Empty:
		s.ok(w, map[string]any{
			"games": []steam.Game{}, "total": 0,
			"message": "no games found or profile is private",
		})
	case upstream.Forbidden:
		s.ok(w, map[string]any{
			"games": []steam.Game{}, "total": 0,
			"message": "profile is private",
		})
	default:
		s.Log.Error().Err(err).Str("steamId", steamID).Msg("fetch owned games")
		s.fail(w, http.StatusInternalServerError, "failed to fetch games")
	}
}
