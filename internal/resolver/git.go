package resolver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// repo maintains a local checkout of the image source repository.
// Satisfied by gitRepo; the resolver takes a constructor so tests can
// stub version control entirely.
type repo interface {
	// Ensure clones the repository if absent, otherwise repoints the
	// origin remote and fetches.
	Ensure(ctx context.Context, url string) error

	// Checkout switches the working tree to the given revision.
	Checkout(ctx context.Context, rev string) error

	// RevParse resolves a revision to its full commit hash.
	RevParse(ctx context.Context, rev string) (string, error)

	// Dir is the working tree path, used as the image build context.
	Dir() string
}

type gitRepo struct {
	path   string
	logger *zap.Logger
}

func newGitRepo(path string, logger *zap.Logger) repo {
	return &gitRepo{path: path, logger: logger}
}

func (r *gitRepo) Dir() string { return r.path }

func (r *gitRepo) Ensure(ctx context.Context, url string) error {
	if _, err := os.Stat(r.path); os.IsNotExist(err) {
		return r.run(ctx, "git", "clone", url, r.path)
	}
	// The cached clone may have been created from a different URL.
	if err := r.git(ctx, "remote", "set-url", "origin", url); err != nil {
		return err
	}
	return r.git(ctx, "fetch")
}

// Checkout tries origin/<rev> first so a branch name picks up the
// latest remote commit rather than a stale local branch. Tags and
// commit hashes fall through to a plain checkout.
func (r *gitRepo) Checkout(ctx context.Context, rev string) error {
	if err := r.git(ctx, "checkout", "origin/"+rev); err == nil {
		return nil
	}
	return r.git(ctx, "checkout", rev)
}

func (r *gitRepo) RevParse(ctx context.Context, rev string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "-C", r.path, "rev-parse", rev)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git rev-parse %s failed: %w: %s", rev, err, strings.TrimSpace(stderr.String()))
	}
	hash := strings.TrimSpace(stdout.String())
	if len(hash) != 40 {
		return "", fmt.Errorf("git rev-parse %s returned invalid commit hash %q", rev, hash)
	}
	return hash, nil
}

func (r *gitRepo) git(ctx context.Context, args ...string) error {
	return r.run(ctx, "git", append([]string{"-C", r.path}, args...)...)
}

func (r *gitRepo) run(ctx context.Context, name string, args ...string) error {
	r.logger.Debug("running", zap.String("cmd", name), zap.Strings("args", args))
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s failed: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
