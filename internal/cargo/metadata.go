// Package cargo discovers binary targets via `cargo metadata`.
package cargo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Loader lists the binary targets of a project. Satisfied by Metadata;
// the pipeline takes the interface so tests can stub target discovery.
type Loader interface {
	BinaryTargets(ctx context.Context, projectDir string) ([]string, error)
}

// Metadata shells out to cargo on the host. The metadata format is
// stable JSON (format version 1).
type Metadata struct{}

func NewMetadata() *Metadata {
	return &Metadata{}
}

type metadataOutput struct {
	Packages []struct {
		Targets []struct {
			Name string   `json:"name"`
			Kind []string `json:"kind"`
		} `json:"targets"`
	} `json:"packages"`
}

// BinaryTargets returns the names of all bin targets in the project.
func (m *Metadata) BinaryTargets(ctx context.Context, projectDir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "cargo", "metadata", "--format-version", "1", "--no-deps")
	cmd.Dir = projectDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("cargo metadata failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseBinaryTargets(stdout.Bytes())
}

func parseBinaryTargets(data []byte) ([]string, error) {
	var out metadataOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse cargo metadata output: %w", err)
	}
	var names []string
	for _, pkg := range out.Packages {
		for _, target := range pkg.Targets {
			for _, kind := range target.Kind {
				if kind == "bin" {
					names = append(names, target.Name)
					break
				}
			}
		}
	}
	return names, nil
}
