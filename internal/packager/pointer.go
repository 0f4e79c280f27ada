package packager

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/crateship/crateship/internal/build"
)

// Pointer tracks the most recent artifacts for a mode. AL2 keeps a
// symlink to exactly the newest binary; Lambda keeps an append-only
// manifest, since one invocation may package several zips and earlier
// entries may still be referenced by deployed stacks.
type Pointer interface {
	// Record registers a freshly written artifact file.
	Record(artifactPath string) error

	// Path is the pointer file location.
	Path() string
}

// PointerFor returns the pointer variant for a mode, rooted at the
// artifact output root.
func PointerFor(mode build.Mode, outputRoot string) Pointer {
	path := filepath.Join(outputRoot, "latest-"+string(mode))
	if mode == build.ModeLambda {
		return &ManifestPointer{path: path}
	}
	return &SymlinkPointer{path: path}
}

// SymlinkPointer retargets a symlink at the newest artifact.
type SymlinkPointer struct {
	path string
}

func (p *SymlinkPointer) Path() string { return p.path }

func (p *SymlinkPointer) Record(artifactPath string) error {
	// Remove first; symlink creation fails if the link exists.
	if err := os.Remove(p.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old pointer %s: %w", p.path, err)
	}
	if err := os.Symlink(artifactPath, p.path); err != nil {
		return fmt.Errorf("failed to create pointer %s: %w", p.path, err)
	}
	return nil
}

// ManifestPointer appends artifact names to a manifest file, never
// rewriting prior entries.
type ManifestPointer struct {
	path string
}

func (p *ManifestPointer) Path() string { return p.path }

func (p *ManifestPointer) Record(artifactPath string) error {
	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open manifest %s: %w", p.path, err)
	}
	if _, err := fmt.Fprintln(f, filepath.Base(artifactPath)); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to manifest %s: %w", p.path, err)
	}
	return f.Close()
}
