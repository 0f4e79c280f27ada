package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/app"
	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/config"
	"github.com/crateship/crateship/internal/pipeline"
)

var al2Cmd = newBuildCmd(build.ModeAL2,
	"Build a standalone executable for Amazon Linux 2")

var lambdaCmd = newBuildCmd(build.ModeLambda,
	"Build a zip package for deployment to AWS Lambda")

func newBuildCmd(mode build.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(mode) + " [project-path]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Past flag parsing; failures from here on are build
			// failures, not usage errors.
			cmd.SilenceUsage = true
			return runBuild(cmd.Context(), mode, args)
		},
	}
}

func runBuild(ctx context.Context, mode build.Mode, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return &build.ConfigError{Reason: err.Error()}
	}

	req, err := newRequest(mode, args, cfg)
	if err != nil {
		return err
	}

	var artifacts []build.Artifact
	var runErr error
	fxApp := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, req, logger),
		app.Module(),
		fx.Invoke(func(p *pipeline.Pipeline) {
			artifacts, runErr = p.Execute(ctx, req)
		}),
	)
	if err := fxApp.Err(); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	for _, a := range artifacts {
		logger.Info("artifact ready",
			zap.String("path", a.OutputPath),
			zap.String("fingerprint", a.Fingerprint),
			zap.String("latest", a.PointerPath))
	}
	return nil
}

// newRequest merges flags over config values into an immutable request.
func newRequest(mode build.Mode, args []string, cfg *config.AppConfig) (build.Request, error) {
	project := ""
	if len(args) > 0 {
		project = args[0]
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return build.Request{}, &build.ConfigError{Reason: fmt.Sprintf("cannot determine working directory: %v", err)}
		}
		project = wd
	}

	repo := firstNonEmpty(flagRepo, cfg.Repo.URL)
	rev := flagRev
	if rev == "" && repo != "" {
		rev = cfg.Repo.Revision
	}

	return build.Request{
		Mode:         mode,
		ProjectPath:  project,
		CodeRoot:     flagCodeRoot,
		ContainerCmd: firstNonEmpty(flagContainerCmd, cfg.ContainerCmd),
		RustVersion:  firstNonEmpty(flagRustVersion, cfg.RustVersion),
		Bins:         flagBins,
		Packages:     flagPackages,
		RepoURL:      repo,
		Revision:     rev,
		Strip:        flagStrip,
		CacheDir:     cfg.CacheDir,
		User:         fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func init() {
	rootCmd.AddCommand(al2Cmd)
	rootCmd.AddCommand(lambdaCmd)
}
