// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	scs "github.com/alexedwards/scs/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"gamezone/internal/cache"
	"gamezone/internal/config"
	"gamezone/internal/db"
	"gamezone/internal/ggdeals"
	"gamezone/internal/http/routes"
	"gamezone/internal/steam"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("starting gamezone api")

	// DB
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()
	queries := db.New(pool)

	// Sessions
	sess := scs.New()
	sess.Lifetime = cfg.SessionLifetime
	sess.Cookie.HttpOnly = true
	sess.Cookie.SameSite = http.SameSiteLaxMode
	sess.Cookie.Secure = cfg.Environment == "production"

	// Response cache with a background sweep so abandoned keys do not
	// accumulate forever
	store := cache.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartSweep(ctx, cfg.CacheSweepInterval, cfg.CacheMaxAge)

	if cfg.SteamAPIKey == "" {
		logger.Warn().Msg("STEAM_API_KEY not set; steam endpoints will answer configuration errors")
	}
	if cfg.GGDealsAPIKey == "" {
		logger.Warn().Msg("GGDEALS_API_KEY not set; price endpoints will answer configuration errors")
	}

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:  sess,
		Users: queries,
		Cache: store,
		Steam: steam.New(cfg.SteamAPIKey),
		Deals: ggdeals.New(cfg.GGDealsAPIKey, ggdeals.WithRegion(cfg.GGDealsRegion)),
		Cfg:   cfg,
		Log:   logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: sess.LoadAndSave(h)}
	log.Fatal(srv.ListenAndServe())
}
