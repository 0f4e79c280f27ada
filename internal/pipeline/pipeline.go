// Package pipeline runs the build end to end: validate the request,
// resolve the container image, then per binary target assemble, run and
// package. Strictly sequential; the first failure halts everything.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/assemble"
	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/cargo"
)

// Engine runs assembled container invocations.
type Engine interface {
	Run(ctx context.Context, inv build.Invocation) error
}

// Resolver provides a local image tag for the request.
type Resolver interface {
	Resolve(ctx context.Context, req build.Request) (string, error)
}

// Packager turns a compiled binary into the final artifact.
type Packager interface {
	Package(req build.Request, bin, binaryPath string) (*build.Artifact, error)
}

type Pipeline struct {
	engine   Engine
	resolver Resolver
	cargo    cargo.Loader
	packager Packager
	logger   *zap.Logger
	timings  *StageTimings
}

func New(engine Engine, resolver Resolver, loader cargo.Loader, packager Packager, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		engine:   engine,
		resolver: resolver,
		cargo:    loader,
		packager: packager,
		logger:   logger,
		timings:  NewStageTimings(),
	}
}

// Execute runs one build invocation and returns the packaged artifacts,
// one per selected binary target.
func (p *Pipeline) Execute(ctx context.Context, req build.Request) ([]build.Artifact, error) {
	req, relProject, err := build.Normalize(req)
	if err != nil {
		return nil, err
	}

	bins, err := p.selectBins(ctx, req)
	if err != nil {
		return nil, err
	}

	p.timings.Start("resolve")
	tag, err := p.resolver.Resolve(ctx, req)
	p.timings.End("resolve")
	if err != nil {
		return nil, err
	}
	p.logger.Info("image resolved", zap.String("tag", tag))

	var artifacts []build.Artifact
	for _, bin := range bins {
		p.logger.Info("building binary target",
			zap.String("bin", bin),
			zap.String("mode", string(req.Mode)))

		inv := assemble.Assemble(req, tag, relProject, bin)
		if err := ensureMountSources(inv); err != nil {
			return nil, err
		}

		p.timings.Start("build " + bin)
		err := p.engine.Run(ctx, inv)
		p.timings.End("build " + bin)
		if err != nil {
			return nil, err
		}

		artifact, err := p.packager.Package(req, bin, assemble.BinaryPath(req, bin))
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, *artifact)
	}

	p.timings.Log(p.logger)
	return artifacts, nil
}

// selectBins decides which binary targets to build. With several
// targets and no --bin the request is ambiguous and rejected before any
// engine call.
func (p *Pipeline) selectBins(ctx context.Context, req build.Request) ([]string, error) {
	targets, err := p.cargo.BinaryTargets(ctx, req.ProjectPath)
	if err != nil {
		return nil, &build.ConfigError{Reason: err.Error()}
	}

	if len(req.Bins) > 0 {
		known := make(map[string]bool, len(targets))
		for _, t := range targets {
			known[t] = true
		}
		for _, bin := range req.Bins {
			if !known[bin] {
				return nil, &build.ConfigError{
					Reason: fmt.Sprintf("binary target %q not found in project (has: %v)", bin, targets),
				}
			}
		}
		return req.Bins, nil
	}

	switch len(targets) {
	case 0:
		return nil, &build.ConfigError{Reason: "project has no binary targets"}
	case 1:
		return targets, nil
	default:
		return nil, &build.ConfigError{
			Reason: fmt.Sprintf("must specify --bin when the project has more than one binary target (has: %v)", targets),
		}
	}
}

// ensureMountSources creates the host-side cache and target directories
// so the engine doesn't create them root-owned.
func ensureMountSources(inv build.Invocation) error {
	for _, m := range inv.Mounts {
		if err := os.MkdirAll(m.Source, 0o755); err != nil {
			return fmt.Errorf("failed to create mount directory %s: %w", m.Source, err)
		}
	}
	return nil
}
