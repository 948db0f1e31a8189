// Package main runs the combat-state engine daemon: it loads effect, skill
// and weapon content plus Lua behavior scripts, keeps the engine's timers
// running, and optionally reloads content on an interval.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatstate/internal/config"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	app, cleanup, err := initializeApp(ctx, cfg)
	if err != nil {
		log.Fatalf("initializing: %v", err)
	}
	defer cleanup()
	logger := app.Logger

	logger.Info("starting combat engine",
		zap.String("cooldown_anchor", cfg.Engine.CooldownAnchor),
		zap.String("stop_skill_policy", cfg.Engine.StopSkillPolicy),
		zap.String("content_source", cfg.Content.Source),
	)

	if _, err := app.Loader.Load(ctx); err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}

	logger.Info("combat engine ready",
		zap.Duration("startup", time.Since(start)),
	)

	if err := app.Lifecycle.Run(ctx); err != nil {
		logger.Error("lifecycle error", zap.Error(err))
	}
}
