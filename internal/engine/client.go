package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
)

// Client wraps a container engine CLI (docker or podman). Only the
// child's exit code and raw output streams are consumed; the build log
// passes through to the caller's streams unmodified.
type Client struct {
	binaryPath string
	logger     *zap.Logger

	stdout io.Writer
	stderr io.Writer
}

// Detect returns the first container engine found in PATH.
func Detect() (string, error) {
	for _, name := range []string{"docker", "podman"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no container engine found in PATH (tried docker, podman)")
}

// NewClient creates a client for the named engine binary. An empty name
// auto-detects.
func NewClient(name string, logger *zap.Logger) (*Client, error) {
	var path string
	var err error
	if name == "" {
		path, err = Detect()
	} else {
		path, err = exec.LookPath(name)
	}
	if err != nil {
		return nil, fmt.Errorf("container engine unavailable: %w", err)
	}
	return &Client{
		binaryPath: path,
		logger:     logger,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}, nil
}

// BuildImageOpts describes one image build.
type BuildImageOpts struct {
	ContextDir string
	Tag        string
	BuildArgs  []build.KV
}

// BuildImage runs `<engine> build` and streams its output.
func (c *Client) BuildImage(ctx context.Context, opts BuildImageOpts) error {
	args := buildArgs(opts)
	c.logger.Info("building image",
		zap.String("engine", c.binaryPath),
		zap.String("tag", opts.Tag))
	return c.stream(ctx, args)
}

// Run executes the assembled invocation, blocking until the container
// exits. A non-zero exit is returned as a BuildFailedError carrying the
// code; the compiler output has already reached the user.
func (c *Client) Run(ctx context.Context, inv build.Invocation) error {
	args := runArgs(inv)
	c.logger.Info("running build container",
		zap.String("engine", c.binaryPath),
		zap.String("image", inv.Image))
	c.logger.Debug("engine invocation", zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, c.binaryPath, args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &build.BuildFailedError{ExitCode: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run %s: %w", c.binaryPath, err)
	}
	return nil
}

// ImageExists reports whether a local image with the given tag exists.
// No network access: `image inspect` only consults local storage.
func (c *Client) ImageExists(ctx context.Context, tag string) (bool, error) {
	cmd := exec.CommandContext(ctx, c.binaryPath, "image", "inspect", tag)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, fmt.Errorf("failed to run %s: %w", c.binaryPath, err)
	}
	return true, nil
}

func (c *Client) stream(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, c.binaryPath, args...)
	cmd.Stdout = c.stdout
	cmd.Stderr = c.stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s %s exited with code %d",
				c.binaryPath, args[0], exitErr.ExitCode())
		}
		return fmt.Errorf("failed to run %s: %w", c.binaryPath, err)
	}
	return nil
}

func buildArgs(opts BuildImageOpts) []string {
	args := []string{"build", "--tag", opts.Tag}
	for _, kv := range opts.BuildArgs {
		args = append(args, "--build-arg", kv.Name+"="+kv.Value)
	}
	return append(args, opts.ContextDir)
}

func runArgs(inv build.Invocation) []string {
	args := []string{"run"}
	if inv.Remove {
		args = append(args, "--rm")
	}
	if inv.Init {
		args = append(args, "--init")
	}
	if inv.User != "" {
		args = append(args, "--user", inv.User)
	}
	for _, env := range inv.Env {
		args = append(args, "--env", env.Name+"="+env.Value)
	}
	for _, m := range inv.Mounts {
		args = append(args, "--volume", mountArg(m))
	}
	if inv.WorkDir != "" {
		args = append(args, "--workdir", inv.WorkDir)
	}
	return append(args, inv.Image)
}

func mountArg(m build.Mount) string {
	mode := "ro"
	if m.ReadWrite {
		mode = "rw"
	}
	return strings.Join([]string{m.Source, m.Target, mode}, ":")
}
