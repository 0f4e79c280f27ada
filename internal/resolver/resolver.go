// Package resolver ensures a local container image exists for the
// requested build, building one from the embedded context or from a
// source repository pinned to a revision.
package resolver

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/config"
	"github.com/crateship/crateship/internal/engine"
)

//go:embed container/Dockerfile container/build.sh
var containerFiles embed.FS

// Engine is the subset of the engine client the resolver needs.
type Engine interface {
	BuildImage(ctx context.Context, opts engine.BuildImageOpts) error
	ImageExists(ctx context.Context, tag string) (bool, error)
}

type Resolver struct {
	engine      Engine
	logger      *zap.Logger
	cacheDir    string
	al2Image    string
	lambdaImage string
	newRepo     func(path string, logger *zap.Logger) repo
}

func New(eng Engine, cfg *config.AppConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		engine:      eng,
		logger:      logger,
		cacheDir:    cfg.CacheDir,
		al2Image:    cfg.Images.AL2,
		lambdaImage: cfg.Images.Lambda,
		newRepo:     newGitRepo,
	}
}

// Resolve returns the tag of a local image suitable for the request,
// building it if necessary. All failures are ResolutionErrors with the
// underlying git/engine diagnostics intact.
func (r *Resolver) Resolve(ctx context.Context, req build.Request) (string, error) {
	var tag string
	var err error
	if req.RepoURL == "" {
		tag, err = r.resolveEmbedded(ctx, req)
	} else {
		tag, err = r.resolveRepo(ctx, req)
	}
	if err != nil {
		return "", &build.ResolutionError{Err: err}
	}
	return tag, nil
}

// resolveEmbedded builds from the Dockerfile shipped inside this
// binary. The build always runs; the engine's layer cache makes repeat
// builds near-instant.
func (r *Resolver) resolveEmbedded(ctx context.Context, req build.Request) (string, error) {
	tag := fmt.Sprintf("crateship-%s-%s", req.Mode, req.RustVersion)

	contextDir, err := writeContainerFiles()
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(contextDir)

	if err := r.engine.BuildImage(ctx, engine.BuildImageOpts{
		ContextDir: contextDir,
		Tag:        tag,
		BuildArgs:  r.buildArgs(req),
	}); err != nil {
		return "", err
	}
	return tag, nil
}

// resolveRepo maintains a cached clone of the image source repository,
// checks out the requested revision and builds from its working tree.
// A revision given as a full commit hash is immutable, so an existing
// image for it is reused without touching the network.
func (r *Resolver) resolveRepo(ctx context.Context, req build.Request) (string, error) {
	if isCommitHash(req.Revision) {
		tag := r.repoTag(req, req.Revision)
		exists, err := r.engine.ImageExists(ctx, tag)
		if err != nil {
			return "", err
		}
		if exists {
			r.logger.Info("reusing cached image", zap.String("tag", tag))
			return tag, nil
		}
	}

	repoDir := filepath.Join(r.cacheDir, "image-source", pathKey(req.RepoURL))
	if err := os.MkdirAll(filepath.Dir(repoDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create source cache directory: %w", err)
	}

	src := r.newRepo(repoDir, r.logger)
	if err := src.Ensure(ctx, req.RepoURL); err != nil {
		return "", err
	}
	if err := src.Checkout(ctx, req.Revision); err != nil {
		return "", err
	}
	commit, err := src.RevParse(ctx, "HEAD")
	if err != nil {
		return "", err
	}

	tag := r.repoTag(req, commit)
	exists, err := r.engine.ImageExists(ctx, tag)
	if err != nil {
		return "", err
	}
	if exists {
		r.logger.Info("reusing cached image",
			zap.String("tag", tag),
			zap.String("commit", commit))
		return tag, nil
	}

	if err := r.engine.BuildImage(ctx, engine.BuildImageOpts{
		ContextDir: src.Dir(),
		Tag:        tag,
		BuildArgs:  r.buildArgs(req),
	}); err != nil {
		return "", err
	}
	return tag, nil
}

func (r *Resolver) buildArgs(req build.Request) []build.KV {
	return []build.KV{
		{Name: "FROM_IMAGE", Value: r.baseImage(req.Mode)},
		{Name: "RUST_VERSION", Value: req.RustVersion},
		{Name: "DEV_PKGS", Value: strings.Join(req.Packages, " ")},
	}
}

func (r *Resolver) baseImage(mode build.Mode) string {
	if mode == build.ModeLambda {
		return r.lambdaImage
	}
	return r.al2Image
}

func (r *Resolver) repoTag(req build.Request, commit string) string {
	return fmt.Sprintf("crateship-%s-%s-%s", req.Mode, req.RustVersion, shorten(commit))
}

func shorten(commit string) string {
	if len(commit) > 12 {
		return commit[:12]
	}
	return commit
}

func isCommitHash(rev string) bool {
	if len(rev) != 40 {
		return false
	}
	for _, c := range rev {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// pathKey turns a repository URL into a stable directory name.
func pathKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return fmt.Sprintf("%x", sum[:6])
}

// writeContainerFiles materializes the embedded build context into a
// temporary directory for the engine's build command.
func writeContainerFiles() (string, error) {
	dir, err := os.MkdirTemp("", "crateship-context-")
	if err != nil {
		return "", fmt.Errorf("failed to create build context: %w", err)
	}
	for _, name := range []string{"Dockerfile", "build.sh"} {
		data, err := containerFiles.ReadFile("container/" + name)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			os.RemoveAll(dir)
			return "", fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return dir, nil
}
