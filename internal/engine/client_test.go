package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
)

func TestMountArg(t *testing.T) {
	m := build.Mount{Source: "/mySrc", Target: "/myDst", ReadWrite: true}
	assert.Equal(t, "/mySrc:/myDst:rw", mountArg(m))

	m.ReadWrite = false
	assert.Equal(t, "/mySrc:/myDst:ro", mountArg(m))
}

func TestRunArgs(t *testing.T) {
	inv := build.Invocation{
		Image:  "crateship-al2-stable",
		Remove: true,
		Init:   true,
		User:   "1000:1000",
		Env: []build.KV{
			{Name: "TARGET_DIR", Value: "/code/target/al2"},
			{Name: "BIN_TARGET", Value: "app"},
		},
		Mounts: []build.Mount{
			{Source: "/src/proj", Target: "/code", ReadWrite: true},
			{Source: "/cache/registry-stable", Target: "/cargo/registry", ReadWrite: true},
		},
		WorkDir: "/code",
	}

	assert.Equal(t, []string{
		"run", "--rm", "--init",
		"--user", "1000:1000",
		"--env", "TARGET_DIR=/code/target/al2",
		"--env", "BIN_TARGET=app",
		"--volume", "/src/proj:/code:rw",
		"--volume", "/cache/registry-stable:/cargo/registry:rw",
		"--workdir", "/code",
		"crateship-al2-stable",
	}, runArgs(inv))
}

func TestBuildArgs(t *testing.T) {
	opts := BuildImageOpts{
		ContextDir: "/tmp/ctx",
		Tag:        "crateship-lambda-stable",
		BuildArgs: []build.KV{
			{Name: "FROM_IMAGE", Value: "docker.io/lambci/lambda:build-provided.al2"},
			{Name: "RUST_VERSION", Value: "stable"},
		},
	}

	assert.Equal(t, []string{
		"build", "--tag", "crateship-lambda-stable",
		"--build-arg", "FROM_IMAGE=docker.io/lambci/lambda:build-provided.al2",
		"--build-arg", "RUST_VERSION=stable",
		"/tmp/ctx",
	}, buildArgs(opts))
}

func TestNewClientMissingEngine(t *testing.T) {
	_, err := NewClient("definitely-not-a-container-engine", zap.NewNop())
	require.Error(t, err)
}
