package build

import (
	"fmt"
	"path/filepath"
	"time"
)

// Mode selects the target runtime environment.
type Mode string

const (
	// ModeAL2 produces a standalone executable for Amazon Linux 2.
	ModeAL2 Mode = "al2"

	// ModeLambda produces a zip package for AWS Lambda containing a
	// single "bootstrap" executable.
	ModeLambda Mode = "lambda"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAL2, ModeLambda:
		return Mode(s), nil
	default:
		return "", &ConfigError{Reason: fmt.Sprintf("invalid mode %q (expected al2 or lambda)", s)}
	}
}

// Request holds everything needed for one build invocation. It is
// constructed once by the CLI front-end and not mutated afterwards.
type Request struct {
	// Mode selects Amazon Linux 2 or AWS Lambda output.
	Mode Mode

	// ProjectPath is the crate to build. Must live under CodeRoot.
	ProjectPath string

	// CodeRoot is the directory mounted into the container. Defaults
	// to ProjectPath.
	CodeRoot string

	// ContainerCmd is the engine binary (docker, podman). Empty means
	// auto-detect.
	ContainerCmd string

	// RustVersion is anything rustup accepts, e.g. "stable" or "1.79.0".
	RustVersion string

	// Bins names the binary targets to build. May be empty when the
	// project has exactly one binary target.
	Bins []string

	// Packages lists extra yum devel packages installed in the build
	// container before compiling.
	Packages []string

	// RepoURL optionally points at a container-image source repository
	// to build the base image from. Empty means the embedded context.
	RepoURL string

	// Revision selects a branch, tag or commit of RepoURL.
	Revision string

	// Strip removes debug symbols from the built binary.
	Strip bool

	// CacheDir is the root of the persistent cargo registry/git caches
	// shared across invocations.
	CacheDir string

	// User is the uid:gid the container process runs as.
	User string
}

// OutputRoot is the directory all artifacts and pointers live under.
func (r Request) OutputRoot() string {
	return filepath.Join(r.ProjectPath, "target", "crateship")
}

// Mount maps a host path into the container.
type Mount struct {
	Source    string
	Target    string
	ReadWrite bool
}

// KV is an ordered name/value pair, used for env vars and build args so
// that assembled invocations are byte-deterministic.
type KV struct {
	Name  string
	Value string
}

// Invocation describes a single container run. Derived deterministically
// from a Request; never mutated after construction.
type Invocation struct {
	Image   string
	Mounts  []Mount
	Env     []KV
	WorkDir string
	User    string
	Init    bool
	Remove  bool
}

// Artifact describes a packaged build output.
type Artifact struct {
	// Binary is the compiled executable the artifact was created from.
	Binary string

	// OutputPath is the final artifact file.
	OutputPath string

	// PointerPath is the latest-<mode> symlink or manifest.
	PointerPath string

	// Fingerprint is the truncated sha256 hex of the binary contents.
	Fingerprint string

	BuiltAt time.Time
	Mode    Mode
}
