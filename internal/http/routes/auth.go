package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"gamezone/internal/auth"
	"gamezone/internal/db"
	appmw "gamezone/internal/http/middleware"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const stateTTL = 10 * time.Minute

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	creds.Username = strings.TrimSpace(creds.Username)

	if !auth.ValidUsername(creds.Username) {
		s.fail(w, http.StatusBadRequest, "username must be 3-32 letters, digits or underscores")
		return
	}
	if !auth.ValidPassword(creds.Password) {
		s.fail(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		s.Log.Error().Err(err).Msg("hash password")
		s.fail(w, http.StatusInternalServerError, "could not create account")
		return
	}

	user, err := s.Users.CreateUser(r.Context(), db.CreateUserParams{
		Username:     creds.Username,
		PasswordHash: pgtype.Text{String: hash, Valid: true},
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			s.fail(w, http.StatusConflict, "username already taken")
			return
		}
		s.Log.Error().Err(err).Str("username", creds.Username).Msg("create user")
		s.fail(w, http.StatusInternalServerError, "could not create account")
		return
	}

	if err := s.Sess.RenewToken(r.Context()); err != nil {
		s.Log.Error().Err(err).Msg("renew session token")
	}
	s.Sess.Put(r.Context(), sessionUserKey, user.ID.String())

	s.ok(w, map[string]any{"user": userView(user)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.fail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	user, err := s.Users.GetUserByUsername(r.Context(), strings.TrimSpace(creds.Username))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.Log.Error().Err(err).Msg("lookup user")
		}
		// constant response shape for unknown user and bad password
		s.fail(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if !user.PasswordHash.Valid || !auth.CheckPassword(user.PasswordHash.String, creds.Password) {
		s.fail(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if err := s.Sess.RenewToken(r.Context()); err != nil {
		s.Log.Error().Err(err).Msg("renew session token")
	}
	s.Sess.Put(r.Context(), sessionUserKey, user.ID.String())

	if err := s.Users.TouchLastLogin(r.Context(), user.ID); err != nil {
		s.Log.Error().Err(err).Msg("touch last login")
	}

	s.ok(w, map[string]any{"user": userView(user)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sess.Destroy(r.Context()); err != nil {
		s.Log.Error().Err(err).Msg("destroy session")
		s.fail(w, http.StatusInternalServerError, "could not log out")
		return
	}
	s.ok(w, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		s.Log.Error().Err(err).Msg("load session user")
		s.fail(w, http.StatusInternalServerError, "could not load user")
		return
	}
	s.ok(w, map[string]any{"user": userView(user)})
}

// handleSteamLogin begins the OpenID handshake for sign-in.
func (s *Server) handleSteamLogin(w http.ResponseWriter, r *http.Request) {
	s.steamRedirect(w, r, "login")
}

// handleSteamLink begins the handshake to attach a SteamID to the session
// user's existing account.
func (s *Server) handleSteamLink(w http.ResponseWriter, r *http.Request) {
	raw, _ := r.Context().Value(appmw.UserIDKey).(string)
	s.steamRedirect(w, r, "link:"+raw)
}

func (s *Server) steamRedirect(w http.ResponseWriter, r *http.Request, mode string) {
	state := s.State.Sign(mode, time.Now().Add(stateTTL))
	returnTo := s.BaseURL + "/auth/steam/callback?state=" + url.QueryEscape(state)
	http.Redirect(w, r, s.OpenID.AuthURL(returnTo), http.StatusFound)
}

func (s *Server) handleSteamCallback(w http.ResponseWriter, r *http.Request) {
	mode, err := s.State.Verify(r.URL.Query().Get("state"))
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid state")
		return
	}

	steamID, err := s.OpenID.Verify(r.Context(), r.URL.Query())
	if err != nil {
		s.Log.Error().Err(err).Msg("steam openid verify")
		s.fail(w, http.StatusUnauthorized, "steam sign-in failed")
		return
	}

	if uid, ok := strings.CutPrefix(mode, "link:"); ok {
		s.finishSteamLink(w, r, uid, steamID)
		return
	}
	s.finishSteamLogin(w, r, steamID)
}

func (s *Server) finishSteamLogin(w http.ResponseWriter, r *http.Request, steamID string) {
	sid := pgtype.Text{String: steamID, Valid: true}

	user, err := s.Users.GetUserBySteamID(r.Context(), sid)
	if errors.Is(err, pgx.ErrNoRows) {
		// first sign-in creates a Steam-only account
		user, err = s.Users.CreateUser(r.Context(), db.CreateUserParams{
			Username: "steam_" + steamID,
			SteamID:  sid,
		})
	}
	if err != nil {
		s.Log.Error().Err(err).Msg("steam sign-in user lookup")
		s.fail(w, http.StatusInternalServerError, "could not sign in")
		return
	}

	if err := s.Sess.RenewToken(r.Context()); err != nil {
		s.Log.Error().Err(err).Msg("renew session token")
	}
	s.Sess.Put(r.Context(), sessionUserKey, user.ID.String())

	if err := s.Users.TouchLastLogin(r.Context(), user.ID); err != nil {
		s.Log.Error().Err(err).Msg("touch last login")
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) finishSteamLink(w http.ResponseWriter, r *http.Request, rawUserID, steamID string) {
	id, err := uuid.Parse(rawUserID)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "invalid state")
		return
	}

	err = s.Users.LinkSteamID(r.Context(), db.LinkSteamIDParams{
		ID:      id,
		SteamID: pgtype.Text{String: steamID, Valid: true},
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			s.fail(w, http.StatusConflict, "steam account already linked to another user")
			return
		}
		s.Log.Error().Err(err).Msg("link steam id")
		s.fail(w, http.StatusInternalServerError, "could not link steam account")
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

func userView(u db.User) map[string]any {
	v := map[string]any{
		"id":          u.ID.String(),
		"username":    u.Username,
		"steamLinked": u.SteamID.Valid,
	}
	if u.SteamID.Valid {
		v["steamId"] = u.SteamID.String
	}
	return v
}
