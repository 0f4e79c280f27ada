package build

import (
	"errors"
	"fmt"
)

// Process exit codes, one per failure stage so scripts can tell a bad
// flag from a failed compile.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitConfig     = 2
	ExitResolution = 3
	ExitBuild      = 4
	ExitPackaging  = 5
)

// ConfigError reports bad flags or an invalid request, raised before any
// container engine call.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Reason
}

// ResolutionError reports a failure to fetch or build the base image.
type ResolutionError struct {
	Err error
}

func (e *ResolutionError) Error() string {
	return "image resolution failed: " + e.Err.Error()
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// BuildFailedError reports a non-zero exit from the in-container build.
// The compiler log has already been streamed to the user.
type BuildFailedError struct {
	ExitCode int
}

func (e *BuildFailedError) Error() string {
	return fmt.Sprintf("container build failed with exit code %d", e.ExitCode)
}

// PackagingError reports a missing compiled binary or an archive/copy
// failure after a successful build.
type PackagingError struct {
	Op  string
	Err error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging failed (%s): %v", e.Op, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// ExitCode maps an error to the process exit code for main.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var (
		cfgErr *ConfigError
		resErr *ResolutionError
		bldErr *BuildFailedError
		pkgErr *PackagingError
	)
	switch {
	case errors.As(err, &cfgErr):
		return ExitConfig
	case errors.As(err, &resErr):
		return ExitResolution
	case errors.As(err, &bldErr):
		return ExitBuild
	case errors.As(err, &pkgErr):
		return ExitPackaging
	default:
		return ExitFailure
	}
}
