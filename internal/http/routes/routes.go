package routes

import (
	"context"
	"net/http"

	scs "github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"gamezone/internal/auth"
	"gamezone/internal/cache"
	"gamezone/internal/config"
	"gamezone/internal/db"
	"gamezone/internal/ggdeals"
	appmw "gamezone/internal/http/middleware"
	"gamezone/internal/steam"
)

const sessionUserKey = "user_id"

// UserStore is the slice of db.Queries the handlers need; an interface so
// handler tests can run against an in-memory fake.
type UserStore interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUserByUsername(ctx context.Context, username string) (db.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (db.User, error)
	GetUserBySteamID(ctx context.Context, steamID pgtype.Text) (db.User, error)
	LinkSteamID(ctx context.Context, arg db.LinkSteamIDParams) error
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

type Server struct {
	Router  *chi.Mux
	Sess    *scs.SessionManager
	Users   UserStore
	Cache   *cache.Store
	Steam   *steam.Client
	Deals   *ggdeals.Client
	State   auth.State
	OpenID  auth.SteamOpenID
	BaseURL string
	Log     zerolog.Logger
}

type ServerOptions struct {
	Sess  *scs.SessionManager
	Users UserStore
	Cache *cache.Store
	Steam *steam.Client
	Deals *ggdeals.Client
	Cfg   config.Config
	Log   zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:  r,
		Sess:    opts.Sess,
		Users:   opts.Users,
		Cache:   opts.Cache,
		Steam:   opts.Steam,
		Deals:   opts.Deals,
		State:   auth.State{Secret: []byte(opts.Cfg.StateSecret)},
		OpenID:  auth.NewSteamOpenID(),
		BaseURL: opts.Cfg.BaseURL,
		Log:     opts.Log,
	}

	limiter := appmw.NewIPRateLimiter(
		rate.Limit(opts.Cfg.RateLimitPerSecond),
		opts.Cfg.RateLimitBurst,
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			s.Log.Error().Err(err).Msg("write health check response")
		}
	})

	r.Post("/api/register", s.handleRegister)
	r.Post("/api/login", s.handleLogin)
	r.Get("/auth/steam/login", s.handleSteamLogin)
	r.Get("/auth/steam/callback", s.handleSteamCallback)

	r.Group(func(pr chi.Router) {
		pr.Use(s.sessionToContext)
		pr.Use(appmw.RequireAuth)
		pr.Post("/api/logout", s.handleLogout)
		pr.Get("/api/me", s.handleMe)
		pr.Get("/auth/steam/link", s.handleSteamLink)

		pr.Group(func(api chi.Router) {
			api.Use(limiter.Middleware)
			api.Get("/api/games", s.handleGames)
			api.Get("/api/profile", s.handleProfile)
			api.Get("/api/friends", s.handleFriends)
			api.Get("/api/achievements", s.handleAchievements)
			api.Get("/api/prices", s.handlePrices)
		})
	})

	return s
}

func (s *Server) sessionToContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := s.Sess.GetString(r.Context(), sessionUserKey); id != "" {
			// use the SAME key that RequireAuth checks
			r = r.WithContext(context.WithValue(r.Context(), appmw.UserIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser loads the session user's row. RequireAuth guarantees the
// context value is present on the routes that call this.
func (s *Server) currentUser(r *http.Request) (db.User, error) {
	raw, _ := r.Context().Value(appmw.UserIDKey).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return db.User{}, err
	}
	return s.Users.GetUserByID(r.Context(), id)
}

// linkedSteamID resolves the session user's linked SteamID, writing the
// error response itself when the account is not linked.
func (s *Server) linkedSteamID(w http.ResponseWriter, r *http.Request) (string, bool) {
	user, err := s.currentUser(r)
	if err != nil {
		s.Log.Error().Err(err).Msg("load session user")
		s.fail(w, http.StatusInternalServerError, "could not load user")
		return "", false
	}
	if !user.SteamID.Valid {
		s.fail(w, http.StatusBadRequest, "steam account not linked")
		return "", false
	}
	return user.SteamID.String, true
}
