package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/rockpaperscissors/internal/config"
	"github.com/robalobadob/rockpaperscissors/internal/game"
	"github.com/robalobadob/rockpaperscissors/internal/httpserver"
	"github.com/robalobadob/rockpaperscissors/internal/metrics"
	"github.com/robalobadob/rockpaperscissors/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open session store")
	}
	defer st.Close()

	if sw, ok := st.(store.Sweeper); ok {
		go store.RunSweeper(ctx, sw, cfg.SweepInterval, cfg.SessionTTL, func(n int) {
			metrics.SessionsSwept.Add(float64(n))
		})
	}

	srv := httpserver.New(st, game.NewRandomSource(cfg.Seed), httpserver.Options{
		Secret:       cfg.SessionSecret,
		TokenTTL:     cfg.TokenTTL,
		CookieName:   cfg.CookieName,
		Secure:       cfg.Production(),
		ClientOrigin: cfg.ClientOrigin,
		DailySalt:    cfg.DailySalt,
	})
	log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("starting rps server")
	if err := srv.Start(ctx, ":"+cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// openStore builds the configured session backend.
func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store {
	case config.StoreSQLite:
		st, err := store.NewSQLiteStore(cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.StoreRedis:
		rdb, err := store.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(rdb, cfg.SessionTTL), nil
	}
	return store.NewMemoryStore(), nil
}
