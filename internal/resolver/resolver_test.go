package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/config"
	"github.com/crateship/crateship/internal/engine"
)

type mockEngine struct {
	built       []engine.BuildImageOpts
	existing    map[string]bool
	inspectErrs error
}

func (m *mockEngine) BuildImage(_ context.Context, opts engine.BuildImageOpts) error {
	m.built = append(m.built, opts)
	return nil
}

func (m *mockEngine) ImageExists(_ context.Context, tag string) (bool, error) {
	if m.inspectErrs != nil {
		return false, m.inspectErrs
	}
	return m.existing[tag], nil
}

type mockRepo struct {
	dir      string
	ensured  string
	checked  string
	commit   string
	parseErr error
}

func (m *mockRepo) Ensure(_ context.Context, url string) error { m.ensured = url; return nil }
func (m *mockRepo) Checkout(_ context.Context, rev string) error {
	m.checked = rev
	return nil
}
func (m *mockRepo) RevParse(_ context.Context, _ string) (string, error) {
	return m.commit, m.parseErr
}
func (m *mockRepo) Dir() string { return m.dir }

func newTestResolver(t *testing.T, eng Engine, src *mockRepo) *Resolver {
	t.Helper()
	cfg := &config.AppConfig{
		CacheDir: t.TempDir(),
		Images: config.ImageConfig{
			AL2:    "docker.io/amazonlinux:2",
			Lambda: "docker.io/lambci/lambda:build-provided.al2",
		},
	}
	r := New(eng, cfg, zap.NewNop())
	if src != nil {
		r.newRepo = func(string, *zap.Logger) repo { return src }
	}
	return r
}

func TestResolveEmbedded(t *testing.T) {
	eng := &mockEngine{}
	r := newTestResolver(t, eng, nil)

	tag, err := r.Resolve(context.Background(), build.Request{
		Mode:        build.ModeAL2,
		RustVersion: "stable",
		Packages:    []string{"openssl-devel", "zlib-devel"},
	})
	require.NoError(t, err)
	assert.Equal(t, "crateship-al2-stable", tag)

	require.Len(t, eng.built, 1)
	assert.Equal(t, tag, eng.built[0].Tag)
	assert.Equal(t, []build.KV{
		{Name: "FROM_IMAGE", Value: "docker.io/amazonlinux:2"},
		{Name: "RUST_VERSION", Value: "stable"},
		{Name: "DEV_PKGS", Value: "openssl-devel zlib-devel"},
	}, eng.built[0].BuildArgs)
}

func TestResolveRepoBuildsFromCheckout(t *testing.T) {
	const commit = "46794db6816e4a07077cf02711ff1921d50e08d3"
	eng := &mockEngine{}
	src := &mockRepo{dir: "/cache/src", commit: commit}
	r := newTestResolver(t, eng, src)

	tag, err := r.Resolve(context.Background(), build.Request{
		Mode:        build.ModeLambda,
		RustVersion: "1.79.0",
		RepoURL:     "https://example.com/images.git",
		Revision:    "main",
	})
	require.NoError(t, err)
	assert.Equal(t, "crateship-lambda-1.79.0-46794db6816e", tag)
	assert.Equal(t, "https://example.com/images.git", src.ensured)
	assert.Equal(t, "main", src.checked)

	require.Len(t, eng.built, 1)
	assert.Equal(t, "/cache/src", eng.built[0].ContextDir)
}

func TestResolveCommitHashReusesImage(t *testing.T) {
	const commit = "46794db6816e4a07077cf02711ff1921d50e08d3"
	eng := &mockEngine{existing: map[string]bool{
		"crateship-al2-stable-46794db6816e": true,
	}}
	src := &mockRepo{commit: commit}
	r := newTestResolver(t, eng, src)

	tag, err := r.Resolve(context.Background(), build.Request{
		Mode:        build.ModeAL2,
		RustVersion: "stable",
		RepoURL:     "https://example.com/images.git",
		Revision:    commit,
	})
	require.NoError(t, err)
	assert.Equal(t, "crateship-al2-stable-46794db6816e", tag)

	// No clone, no fetch, no build.
	assert.Empty(t, src.ensured)
	assert.Empty(t, eng.built)
}

func TestResolveWrapsFailures(t *testing.T) {
	eng := &mockEngine{inspectErrs: assert.AnError}
	src := &mockRepo{commit: "46794db6816e4a07077cf02711ff1921d50e08d3"}
	r := newTestResolver(t, eng, src)

	_, err := r.Resolve(context.Background(), build.Request{
		Mode:        build.ModeAL2,
		RustVersion: "stable",
		RepoURL:     "https://example.com/images.git",
		Revision:    "main",
	})
	require.Error(t, err)
	assert.Equal(t, build.ExitResolution, build.ExitCode(err))
}

func TestIsCommitHash(t *testing.T) {
	assert.True(t, isCommitHash("46794db6816e4a07077cf02711ff1921d50e08d3"))
	assert.False(t, isCommitHash("main"))
	assert.False(t, isCommitHash("46794db"))
	assert.False(t, isCommitHash("46794DB6816E4A07077CF02711FF1921D50E08D3"))
}
