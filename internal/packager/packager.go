// Package packager turns a compiled binary into the final deployment
// artifact: a uniquely named raw executable for Amazon Linux 2 or a zip
// containing a "bootstrap" entry point for AWS Lambda.
package packager

import (
	"archive/zip"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"
	"go.uber.org/zap"

	"github.com/crateship/crateship/internal/build"
)

// bootstrapName is the entry-point filename the Lambda provided runtime
// expects inside the package.
const bootstrapName = "bootstrap"

type Packager struct {
	logger *zap.Logger

	// now is replaceable so name generation is testable.
	now func() time.Time
}

func New(logger *zap.Logger) *Packager {
	return &Packager{logger: logger, now: time.Now}
}

// UniqueName builds the artifact file name. It is identifiable,
// sortable by time, unique per content, and reasonably short:
// mode, binary name, UTC date, then the first 16 hex digits of the
// sha256 of the binary contents.
func UniqueName(mode build.Mode, bin string, contents []byte, when time.Time) string {
	hash := sha256.Sum256(contents)
	return fmt.Sprintf("%s-%s-%s-%x", mode, bin, when.UTC().Format("20060102"), hash[:8])
}

// Package writes the artifact for one compiled binary and updates the
// mode's latest pointer. The binary must exist at binaryPath; its
// absence means the in-container build did not place output where
// expected.
func (p *Packager) Package(req build.Request, bin, binaryPath string) (*build.Artifact, error) {
	if req.Strip {
		if err := p.strip(binaryPath); err != nil {
			return nil, err
		}
	}

	contents, err := os.ReadFile(binaryPath)
	if err != nil {
		return nil, &build.PackagingError{Op: "read binary", Err: err}
	}

	when := p.now()
	name := UniqueName(req.Mode, bin, contents, when)

	outDir := filepath.Join(req.OutputRoot(), string(req.Mode))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, &build.PackagingError{Op: "create output directory", Err: err}
	}

	var outPath string
	switch req.Mode {
	case build.ModeLambda:
		outPath = filepath.Join(outDir, name+".zip")
		if err := writeZip(outPath, contents); err != nil {
			return nil, err
		}
	default:
		outPath = filepath.Join(outDir, name)
		if err := copyExecutable(binaryPath, outPath); err != nil {
			return nil, err
		}
	}
	p.logger.Info("writing artifact", zap.String("path", outPath))

	pointer := PointerFor(req.Mode, req.OutputRoot())
	if err := pointer.Record(outPath); err != nil {
		return nil, &build.PackagingError{Op: "update latest pointer", Err: err}
	}

	hash := sha256.Sum256(contents)
	return &build.Artifact{
		Binary:      binaryPath,
		OutputPath:  outPath,
		PointerPath: pointer.Path(),
		Fingerprint: fmt.Sprintf("%x", hash[:8]),
		BuiltAt:     when,
		Mode:        req.Mode,
	}, nil
}

// strip removes debug symbols in place using the host strip command.
func (p *Packager) strip(path string) error {
	p.logger.Info("stripping symbols", zap.String("path", path))
	cmd := exec.Command("strip", path)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return &build.PackagingError{Op: "strip", Err: err}
	}
	return nil
}

// writeZip creates a zip holding a single executable bootstrap entry.
// Deflate goes through klauspost's flate, which is noticeably faster
// than the standard encoder on multi-megabyte binaries.
func writeZip(path string, contents []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return &build.PackagingError{Op: "create archive", Err: err}
	}

	zw := zip.NewWriter(f)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	header := &zip.FileHeader{
		Name:   bootstrapName,
		Method: zip.Deflate,
	}
	header.SetMode(0o755)

	w, err := zw.CreateHeader(header)
	if err == nil {
		_, err = w.Write(contents)
	}
	if err == nil {
		err = zw.Close()
	}
	if err != nil {
		f.Close()
		os.Remove(path)
		return &build.PackagingError{Op: "write archive", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return &build.PackagingError{Op: "write archive", Err: err}
	}
	return nil
}

// copyExecutable copies the binary preserving the executable bit.
func copyExecutable(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &build.PackagingError{Op: "locate binary", Err: err}
		}
		return &build.PackagingError{Op: "open binary", Err: err}
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return &build.PackagingError{Op: "create artifact", Err: err}
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return &build.PackagingError{Op: "copy binary", Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return &build.PackagingError{Op: "copy binary", Err: err}
	}
	return nil
}
