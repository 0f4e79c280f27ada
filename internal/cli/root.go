// Package cli implements the crateship command-line front-end.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagConfig       string
	flagContainerCmd string
	flagRustVersion  string
	flagCodeRoot     string
	flagRepo         string
	flagRev          string
	flagStrip        bool
	flagBins         []string
	flagPackages     []string
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "crateship",
	Short: "Build Rust projects in a container for Amazon Linux 2 or AWS Lambda",
	Long: `crateship compiles a Rust project inside a container that replicates the
target runtime (Amazon Linux 2 or AWS Lambda), then packages the result:
a standalone binary for AL2 or a zip with a "bootstrap" entry point for
Lambda. Artifacts get unique content-fingerprinted names so uploads never
overwrite previous deployments.`,
	SilenceErrors: true,
}

// Execute runs the root command with the given context and logger.
func Execute(ctx context.Context, log *zap.Logger) error {
	logger = log
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "config file (default: $XDG_CONFIG_HOME/crateship/config.yaml)")
	pf.StringVar(&flagContainerCmd, "container-cmd", "", "container engine binary (default: auto-detect docker, podman)")
	pf.StringVar(&flagRustVersion, "rust-version", "", "rust version to install (default: latest stable)")
	pf.StringVar(&flagCodeRoot, "code-root", "", "directory mounted into the container; must contain the project (default: project path)")
	pf.StringVar(&flagRepo, "repo", "", "container image source repository to build the base image from")
	pf.StringVar(&flagRev, "rev", "", "branch, tag or commit of --repo")
	pf.BoolVar(&flagStrip, "strip", false, "strip debug symbols from the built binary")
	pf.StringArrayVar(&flagBins, "bin", nil, "binary target to build (required when the project has several; repeatable)")
	pf.StringArrayVar(&flagPackages, "package", nil, "extra yum devel package to install in the build container (repeatable)")
}
