//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudcombat/internal/config"
)

func initializeApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	wire.Build(
		provideStore,
		provideClock,
		provideDispatcher,
		provideCatalog,
		provideAbilities,
		providePerks,
		provideLoot,
		provideScripts,
		provideFeed,
		provideEngine,
		provideApp,
	)
	return nil, nil, nil
}
