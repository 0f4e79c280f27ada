package build

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
)

// Normalize canonicalizes the request paths and validates the request
// before any container engine call. It returns the normalized request
// and the project path relative to the code root.
func Normalize(req Request) (Request, string, error) {
	if req.ProjectPath == "" {
		return req, "", &ConfigError{Reason: "project path is required"}
	}
	if req.CodeRoot == "" {
		req.CodeRoot = req.ProjectPath
	}

	// Absolute paths are required for container volume args.
	project, err := filepath.Abs(req.ProjectPath)
	if err != nil {
		return req, "", &ConfigError{Reason: fmt.Sprintf("cannot resolve project path %s: %v", req.ProjectPath, err)}
	}
	codeRoot, err := filepath.Abs(req.CodeRoot)
	if err != nil {
		return req, "", &ConfigError{Reason: fmt.Sprintf("cannot resolve code root %s: %v", req.CodeRoot, err)}
	}
	req.ProjectPath = project
	req.CodeRoot = codeRoot

	rel, err := filepath.Rel(codeRoot, project)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return req, "", &ConfigError{
			Reason: fmt.Sprintf("project path %s must be within the code root %s", project, codeRoot),
		}
	}

	if req.RustVersion == "" {
		req.RustVersion = DefaultRustVersion
	}
	if !validRustVersion(req.RustVersion) {
		return req, "", &ConfigError{Reason: fmt.Sprintf("invalid rust version %q", req.RustVersion)}
	}

	if req.Revision != "" && req.RepoURL == "" {
		return req, "", &ConfigError{Reason: "--rev requires --repo"}
	}

	return req, rel, nil
}

// DefaultRustVersion is installed when no version is requested.
const DefaultRustVersion = "stable"

var channels = map[string]bool{
	"stable":  true,
	"beta":    true,
	"nightly": true,
}

// validRustVersion accepts rustup channel names and plain version
// numbers like "1.79" or "1.79.0".
func validRustVersion(v string) bool {
	if channels[v] {
		return true
	}
	// Dated channels such as "nightly-2024-05-01".
	if i := strings.IndexByte(v, '-'); i > 0 && channels[v[:i]] {
		return true
	}
	return semver.IsValid("v" + v)
}
