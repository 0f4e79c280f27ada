package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
	"github.com/crateship/crateship/internal/config"
)

func testCleanConfig(dir string) *config.AppConfig {
	return &config.AppConfig{
		CacheDir: dir,
		Clean:    config.CleanConfig{MaxAge: 30 * 24 * time.Hour},
	}
}

type mockEngine struct {
	runs    []build.Invocation
	failErr error
}

func (m *mockEngine) Run(_ context.Context, inv build.Invocation) error {
	m.runs = append(m.runs, inv)
	return m.failErr
}

type mockResolver struct {
	tag      string
	called   bool
	resolveE error
}

func (m *mockResolver) Resolve(_ context.Context, _ build.Request) (string, error) {
	m.called = true
	return m.tag, m.resolveE
}

type mockCargo struct {
	targets []string
}

func (m *mockCargo) BinaryTargets(_ context.Context, _ string) ([]string, error) {
	return m.targets, nil
}

type mockPackager struct {
	packaged []string
}

func (m *mockPackager) Package(req build.Request, bin, binaryPath string) (*build.Artifact, error) {
	m.packaged = append(m.packaged, bin)
	return &build.Artifact{
		Binary:     binaryPath,
		OutputPath: filepath.Join(req.OutputRoot(), string(req.Mode), bin),
		Mode:       req.Mode,
		BuiltAt:    time.Now(),
	}, nil
}

type fixture struct {
	engine   *mockEngine
	resolver *mockResolver
	cargo    *mockCargo
	packager *mockPackager
	pipeline *Pipeline
}

func newFixture(targets []string) *fixture {
	f := &fixture{
		engine:   &mockEngine{},
		resolver: &mockResolver{tag: "crateship-al2-stable"},
		cargo:    &mockCargo{targets: targets},
		packager: &mockPackager{},
	}
	f.pipeline = New(f.engine, f.resolver, f.cargo, f.packager, zap.NewNop())
	return f
}

func testRequest(t *testing.T) build.Request {
	t.Helper()
	return build.Request{
		Mode:        build.ModeAL2,
		ProjectPath: t.TempDir(),
		RustVersion: "stable",
		CacheDir:    t.TempDir(),
	}
}

func TestExecuteSingleBinary(t *testing.T) {
	f := newFixture([]string{"app"})
	req := testRequest(t)

	artifacts, err := f.pipeline.Execute(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, artifacts, 1)
	assert.Equal(t, []string{"app"}, f.packager.packaged)
	require.Len(t, f.engine.runs, 1)
	assert.Equal(t, "crateship-al2-stable", f.engine.runs[0].Image)

	// Mount sources were created on the host before the engine ran.
	for _, m := range f.engine.runs[0].Mounts {
		assert.DirExists(t, m.Source)
	}
}

func TestExecuteAmbiguousBinsFailsBeforeEngine(t *testing.T) {
	f := newFixture([]string{"server", "worker"})

	_, err := f.pipeline.Execute(context.Background(), testRequest(t))
	require.Error(t, err)
	assert.Equal(t, build.ExitConfig, build.ExitCode(err))

	// No wasted engine or resolver calls.
	assert.False(t, f.resolver.called)
	assert.Empty(t, f.engine.runs)
}

func TestExecuteCodeRootMustContainProject(t *testing.T) {
	f := newFixture([]string{"app"})
	req := testRequest(t)
	req.CodeRoot = t.TempDir()

	_, err := f.pipeline.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, build.ExitConfig, build.ExitCode(err))
	assert.False(t, f.resolver.called)
}

func TestExecuteUnknownBin(t *testing.T) {
	f := newFixture([]string{"server"})
	req := testRequest(t)
	req.Bins = []string{"worker"}

	_, err := f.pipeline.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, build.ExitConfig, build.ExitCode(err))
}

func TestExecuteBuildFailureHaltsPipeline(t *testing.T) {
	f := newFixture([]string{"app"})
	f.engine.failErr = &build.BuildFailedError{ExitCode: 101}
	req := testRequest(t)

	_, err := f.pipeline.Execute(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, build.ExitBuild, build.ExitCode(err))
	assert.Contains(t, err.Error(), "101")

	// No artifact is written after a failed compile.
	assert.Empty(t, f.packager.packaged)
	assert.NoDirExists(t, filepath.Join(req.OutputRoot(), "al2"))
}

func TestExecuteMultipleSelectedBins(t *testing.T) {
	f := newFixture([]string{"server", "worker"})
	req := testRequest(t)
	req.Bins = []string{"server", "worker"}

	artifacts, err := f.pipeline.Execute(context.Background(), req)
	require.NoError(t, err)

	assert.Len(t, artifacts, 2)
	assert.Equal(t, []string{"server", "worker"}, f.packager.packaged)
	assert.Len(t, f.engine.runs, 2)
	assert.Equal(t, "BIN_TARGET", f.engine.runs[0].Env[1].Name)
	assert.Equal(t, "server", f.engine.runs[0].Env[1].Value)
	assert.Equal(t, "worker", f.engine.runs[1].Env[1].Value)
}

func TestCleanupOldCaches(t *testing.T) {
	cacheDir := t.TempDir()
	stale := filepath.Join(cacheDir, "registry-1.70.0")
	fresh := filepath.Join(cacheDir, "registry-stable")
	require.NoError(t, os.MkdirAll(stale, 0o755))
	require.NoError(t, os.MkdirAll(fresh, 0o755))

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	cm := NewCleanupManager(testCleanConfig(cacheDir), zap.NewNop())
	require.NoError(t, cm.CleanupOldCaches(24*time.Hour))

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
}

func TestCleanupMissingCacheDir(t *testing.T) {
	cm := NewCleanupManager(testCleanConfig(filepath.Join(t.TempDir(), "absent")), zap.NewNop())
	require.NoError(t, cm.CleanupOldCaches(time.Hour))
}
