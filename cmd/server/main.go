package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/go-rod/rod"

	"github.com/casepulse/casepulse/internal/api"
	"github.com/casepulse/casepulse/internal/config"
	"github.com/casepulse/casepulse/internal/database"
	"github.com/casepulse/casepulse/internal/documents"
	"github.com/casepulse/casepulse/internal/registry"
	"github.com/casepulse/casepulse/internal/scrape"
	"github.com/casepulse/casepulse/internal/server"
	"github.com/casepulse/casepulse/internal/source"
	"github.com/casepulse/casepulse/internal/store"
	"github.com/casepulse/casepulse/internal/summary"
	"github.com/casepulse/casepulse/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "run database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.Initialize(cfg.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize database", "path", cfg.DatabasePath, "error", err)
	}

	if *migrateOnly {
		log.Info("Migrations complete", "path", cfg.DatabasePath)
		return
	}

	fixture, err := source.LoadFixture()
	if err != nil {
		log.Fatal("Failed to load demo fixture", "error", err)
	}

	st := store.New(db, cfg.CacheSize, cfg.CacheTTL, log)

	sources := source.NewRegistry()
	var browser *rod.Browser
	if cfg.DemoMode {
		log.Info("Demo mode: serving all courts from the bundled dataset")
		for _, profile := range source.BuiltinProfiles() {
			sources.Register(source.NewDemoAdapter(profile.Court, fixture))
		}
	} else {
		browser, err = source.NewBrowser(cfg)
		if err != nil {
			log.Fatal("Failed to launch browser", "error", err)
		}
		for _, profile := range source.BuiltinProfiles() {
			sources.Register(source.NewPortalAdapter(profile, browser, cfg, log))
		}
	}

	orch := scrape.New(sources, fixture, st, cfg, log)
	reg := registry.New(db, log)
	summarizer := summary.New(cfg, reg, log)
	docs := documents.New(db, cfg.DocumentDir, cfg.UserAgent, log)

	handlers := api.NewHandlers(st, orch, reg, summarizer, docs, cfg, log)

	cleanups := []func() error{}
	if browser != nil {
		cleanups = append(cleanups, browser.Close)
	}

	srv := server.New(cfg, handlers, log, cleanups...)
	if err := srv.Run(); err != nil {
		log.Fatal("Server error", "error", err)
	}
}
