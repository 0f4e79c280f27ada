// Package app wires the application graph.
package app

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/engine"
	"github.com/crateship/crateship/internal/pipeline"
)

// Module combines the providers needed to execute a build request. The
// config, logger and request are supplied by the CLI front-end.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			func(req build.Request, logger *zap.Logger) (*engine.Client, error) {
				return engine.NewClient(req.ContainerCmd, logger)
			},
		),
		pipeline.Module(),
	)
}
