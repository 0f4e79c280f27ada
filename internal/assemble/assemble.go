// Package assemble derives a container invocation from a build request.
// Assemble is a pure function: equal inputs produce identical
// invocations, which keeps the mount and argument layout testable
// without a container engine.
package assemble

import (
	"path"
	"path/filepath"

	"github.com/crateship/crateship/internal/build"
)

// Container-side paths. The build script inside the image reads
// TARGET_DIR and BIN_TARGET and runs the release build into the mounted
// target directory.
const (
	codeDir      = "/code"
	registryDir  = "/cargo/registry"
	gitDir       = "/cargo/git"
	targetDir    = "/code/target"
	envTargetDir = "TARGET_DIR"
	envBinTarget = "BIN_TARGET"
)

// Assemble computes the invocation for building a single binary target.
// relProject is the project path relative to the code root, as returned
// by build.Normalize.
func Assemble(req build.Request, imageTag, relProject, bin string) build.Invocation {
	modeName := string(req.Mode)

	return build.Invocation{
		Image: imageTag,
		Mounts: []build.Mount{
			// The project code. Builds write only to the mapped target
			// directory, but the registry lockfile may be refreshed.
			{Source: req.CodeRoot, Target: codeDir, ReadWrite: true},
			// Two cargo cache directories shared across invocations so
			// rebuilds skip dependency downloads. Keyed by toolchain so
			// registries built by different cargo versions don't mix.
			{Source: filepath.Join(req.CacheDir, "registry-"+req.RustVersion), Target: registryDir, ReadWrite: true},
			{Source: filepath.Join(req.CacheDir, "git-"+req.RustVersion), Target: gitDir, ReadWrite: true},
			// The persistent target directory, keyed by project. Mode
			// separation happens below it via TARGET_DIR.
			{Source: req.OutputRoot(), Target: targetDir, ReadWrite: true},
		},
		Env: []build.KV{
			{Name: envTargetDir, Value: path.Join(targetDir, modeName)},
			{Name: envBinTarget, Value: bin},
		},
		WorkDir: path.Join(codeDir, filepath.ToSlash(relProject)),
		User:    req.User,
		Init:    true,
		Remove:  true,
	}
}

// BinaryPath returns the host path where the container build leaves the
// compiled executable.
func BinaryPath(req build.Request, bin string) string {
	return filepath.Join(req.OutputRoot(), string(req.Mode), "release", bin)
}
