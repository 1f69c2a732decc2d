package main

import (
	"log"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/evolution"
	"github.com/studypets/economy/internal/exchange"
	"github.com/studypets/economy/internal/fusion"
	"github.com/studypets/economy/internal/gacha"
	"github.com/studypets/economy/internal/ledger"
	"github.com/studypets/economy/internal/random"
	"github.com/studypets/economy/internal/rules"
)

type config struct {
	Addr              string        `env:"ADDR" envDefault:":8080"`
	CatalogPath       string        `env:"CATALOG_PATH" envDefault:"config/catalog.yaml"`
	RulesPath         string        `env:"RULES_PATH" envDefault:"config/rules.yaml"`
	RulesOverridePath string        `env:"RULES_OVERRIDE_PATH"`
	WatchInterval     time.Duration `env:"RULES_WATCH_INTERVAL" envDefault:"30s"`
	// Seed pins the draw RNG for reproducible dev sessions; 0 keeps the
	// crypto default.
	Seed uint64 `env:"SEED"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("parse env: %v", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatalf("load catalog: %v", err)
	}

	loader := rules.NewLoader(cfg.RulesPath, cfg.RulesOverridePath)
	r, err := loader.Load()
	if err != nil {
		log.Fatalf("load rules: %v", err)
	}
	watcher := rules.NewWatcher(loader.Paths(), cfg.WatchInterval, func(path string) {
		log.Printf("rules file %s changed; next session picks up new tables", path)
		loader.Invalidate()
	})
	watcher.Start()
	defer watcher.Stop()

	// dev mode backend: the in-memory ledger stands in for the remote one
	led := ledger.NewMemory(r)

	var gachaSrc, fusionSrc random.Source
	if cfg.Seed != 0 {
		gachaSrc = random.NewSeeded(cfg.Seed)
		fusionSrc = random.NewSeeded(cfg.Seed + 1)
	}

	s := &server{
		cat:       cat,
		led:       led,
		gacha:     gacha.New(cat, led, r, gachaSrc),
		fusion:    fusion.New(cat, led, r, fusionSrc),
		evolution: evolution.New(cat, led, r),
		exchange:  exchange.New(led, r),
	}

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("listening on %s (catalog %s, rules %s v%s)", cfg.Addr, cfg.CatalogPath, cfg.RulesPath, r.Version)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}
