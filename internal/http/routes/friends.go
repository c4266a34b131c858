package routes

import (
	"net/http"

	"gamezone/internal/cache"
	"gamezone/internal/steam"
	"gamezone/internal/upstream"
)

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	steamID, ok := s.linkedSteamID(w, r)
	if !ok {
		return
	}
	if !s.Steam.Configured() {
		s.fail(w, http.StatusInternalServerError, "steam api is not configured")
		return
	}

	key := cache.Key("friends", steamID)
	if v, ok := s.Cache.Lookup(key, steam.FriendsTTL); ok {
		friends := v.([]steam.Friend)
		s.ok(w, map[string]any{"friends": friends, "total": len(friends), "fromCache": true})
		return
	}

	friends, kind, err := s.Steam.Friends(r.Context(), steamID)
	switch kind {
	case upstream.Success:
		s.Cache.Put(key, friends)
		s.ok(w, map[string]any{"friends": friends, "total": len(friends), "fromCache": false})
	case upstream.Empty:
		s.ok(w, map[string]any{
			"friends": []steam.Friend{}, "total": 0,
			"message": "no friends found",
		})
	case upstream.Forbidden:
		s.ok(w, map[string]any{
			"friends": []steam.Friend{}, "total": 0,
			"message": "friends list is private",
		})
	default:
		s.Log.Error().Err(err).Str("steamId", steamID).Msg("fetch friends")
		s.fail(w, http.StatusInternalServerError, "failed to fetch friends")
	}
}
