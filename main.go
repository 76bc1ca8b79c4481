package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/tilematch/apps/go-server/assets"
	"github.com/robalobadob/tilematch/apps/go-server/internal/config"
	"github.com/robalobadob/tilematch/apps/go-server/internal/httpserver"
	"github.com/robalobadob/tilematch/apps/go-server/internal/store"
	"github.com/robalobadob/tilematch/apps/go-server/internal/symbols"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	if err := symbols.Init(cfg.SymbolsFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load symbol sets")
	}
	sets, syms := symbols.Stats()
	log.Info().Int("sets", sets).Int("symbols", syms).Msg("symbol sets loaded")

	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open db")
	}
	defer db.Close()
	if err := migrate(db, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	mem := store.NewMemoryStore()
	srv := httpserver.New(cfg, mem, db)
	log.Info().Str("port", cfg.Port).Dur("mismatchDelay", cfg.MismatchDelay).Msg("starting go-server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
