package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/mch-billing/terminal/internal/config"
	"github.com/mch-billing/terminal/internal/settings"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// CLI flags
	appName := flag.String("app-name", "", "Application name shown in the header")
	subtitle := flag.String("subtitle", "", "Application subtitle")
	force := flag.Bool("force", false, "Overwrite settings that are already stored")
	flag.Parse()

	// Fall back to environment variables
	if *appName == "" {
		*appName = os.Getenv("SEED_APP_NAME")
	}
	if *subtitle == "" {
		*subtitle = os.Getenv("SEED_APP_SUBTITLE")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	store, closeStore, err := settings.Open(ctx, cfg.SettingsBackend, cfg.SettingsPath, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("open settings store")
	}
	defer closeStore()

	_, err = store.Get(ctx, settings.Key)
	switch {
	case err == nil && !*force:
		log.Info().Str("backend", cfg.SettingsBackend).Msg("settings already stored, skipping (use --force to overwrite)")
		return
	case err != nil && !errors.Is(err, settings.ErrNotFound):
		log.Fatal().Err(err).Msg("read settings")
	}

	seeded := settings.Defaults()
	name, sub := seeded.AppName, seeded.AppSubtitle
	if *appName != "" {
		name = *appName
	}
	if *subtitle != "" {
		sub = *subtitle
	}
	seeded.UpdateAppInfo(name, sub)

	repo := settings.NewRepository(store, log)
	saved, err := repo.Replace(ctx, seeded)
	if err != nil {
		log.Fatal().Err(err).Msg("seed settings")
	}

	log.Info().
		Str("backend", cfg.SettingsBackend).
		Str("title", saved.Title()).
		Int("nav_buttons", len(saved.NavButtons)).
		Int("categories", len(saved.Categories)).
		Msg("seed completed successfully")
}
