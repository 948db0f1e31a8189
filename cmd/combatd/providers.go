package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/combatstate/internal/config"
	"github.com/cory-johannsen/combatstate/internal/content"
	"github.com/cory-johannsen/combatstate/internal/game/combat"
	"github.com/cory-johannsen/combatstate/internal/game/skill"
	"github.com/cory-johannsen/combatstate/internal/observability"
	"github.com/cory-johannsen/combatstate/internal/scripting"
	"github.com/cory-johannsen/combatstate/internal/server"
	"github.com/cory-johannsen/combatstate/internal/storage/postgres"
	"github.com/cory-johannsen/combatstate/internal/timer"
)

// App is everything main needs after injection.
type App struct {
	Logger    *zap.Logger
	Engine    *combat.Engine
	Loader    *content.Loader
	Lifecycle *server.Lifecycle
}

func provideLogger(cfg config.Config) (*zap.Logger, func(), error) {
	logger, err := observability.NewLogger(cfg.Logging, "combatd")
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

func provideScheduler() timer.Scheduler {
	return timer.NewWall()
}

func provideEngine(cfg config.Config, sched timer.Scheduler, logger *zap.Logger) (*combat.Engine, error) {
	anchor, err := skill.ParseCooldownAnchor(cfg.Engine.CooldownAnchor)
	if err != nil {
		return nil, err
	}
	policy, err := skill.ParseStopPolicy(cfg.Engine.StopSkillPolicy)
	if err != nil {
		return nil, err
	}
	return combat.NewEngine(sched, logger,
		skill.WithCooldownAnchor(anchor),
		skill.WithStopPolicy(policy),
	), nil
}

func provideScripts(eng *combat.Engine, logger *zap.Logger) *scripting.Manager {
	mgr := scripting.NewManager(logger.Named("scripting"))
	content.BindEngine(mgr, eng)
	return mgr
}

func provideSource(ctx context.Context, cfg config.Config, logger *zap.Logger) (content.Source, func(), error) {
	if cfg.Content.Source != "postgres" {
		return content.DirSource{
			EffectsDir: cfg.Content.EffectsDir,
			SkillsDir:  cfg.Content.SkillsDir,
			WeaponsDir: cfg.Content.WeaponsDir,
		}, func() {}, nil
	}
	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)
	return postgres.NewCatalogRepository(pool), pool.Close, nil
}

func provideLoader(cfg config.Config, src content.Source, scripts *scripting.Manager, eng *combat.Engine, logger *zap.Logger) *content.Loader {
	return content.NewLoader(src, scripts, eng, cfg.Content.ScriptsDir, cfg.Content.InstructionLimit, logger.Named("content"))
}

func provideReloader(cfg config.Config, loader *content.Loader, logger *zap.Logger) *content.Reloader {
	return content.NewReloader(loader, cfg.Engine.ReloadInterval, logger.Named("content"))
}

// provideLifecycle registers services so that shutdown stops reloading
// first, then the engine's timers, then the Lua VM.
func provideLifecycle(logger *zap.Logger, eng *combat.Engine, scripts *scripting.Manager, reloader *content.Reloader) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	lc.Add("scripts", server.BlockingService(scripts.Close))
	lc.Add("engine", server.BlockingService(eng.Close))
	lc.Add("content-reloader", reloader)
	return lc
}

func provideApp(logger *zap.Logger, eng *combat.Engine, loader *content.Loader, lc *server.Lifecycle) *App {
	return &App{Logger: logger, Engine: eng, Loader: loader, Lifecycle: lc}
}
