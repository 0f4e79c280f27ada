package pipeline

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/cargo"
	"github.com/crateship/crateship/internal/config"
	"github.com/crateship/crateship/internal/engine"
	"github.com/crateship/crateship/internal/packager"
	"github.com/crateship/crateship/internal/resolver"
)

func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				func(eng *engine.Client, cfg *config.AppConfig, logger *zap.Logger) *resolver.Resolver {
					return resolver.New(eng, cfg, logger)
				},
			),
			fx.Annotate(
				func(logger *zap.Logger) *packager.Packager {
					return packager.New(logger)
				},
			),
			fx.Annotate(
				func() cargo.Loader {
					return cargo.NewMetadata()
				},
			),
			fx.Annotate(
				func(eng *engine.Client, res *resolver.Resolver, loader cargo.Loader, pkg *packager.Packager, logger *zap.Logger) *Pipeline {
					return New(eng, res, loader, pkg, logger)
				},
			),
			fx.Annotate(
				func(cfg *config.AppConfig, logger *zap.Logger) *CleanupManager {
					return NewCleanupManager(cfg, logger)
				},
			),
		),
	)
}
