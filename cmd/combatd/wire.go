//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/cory-johannsen/combatstate/internal/config"
)

func initializeApp(ctx context.Context, cfg config.Config) (*App, func(), error) {
	wire.Build(
		provideLogger,
		provideScheduler,
		provideEngine,
		provideScripts,
		provideSource,
		provideLoader,
		provideReloader,
		provideLifecycle,
		provideApp,
	)
	return nil, nil, nil
}
