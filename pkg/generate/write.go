package generate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenTraceLab/scangen/pkg/verilog"
)

// WriteArtifacts writes arts into dir. Every artifact is first staged in a
// temporary file next to its destination; only when all of them are on disk
// are they renamed into place. On failure the staged files are removed.
func WriteArtifacts(dir string, arts []verilog.Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	staged := make([]string, 0, len(arts))
	cleanup := func(paths []string) {
		for _, p := range paths {
			os.Remove(p)
		}
	}

	for _, a := range arts {
		tmp, err := stage(dir, a)
		if err != nil {
			cleanup(staged)
			return err
		}
		staged = append(staged, tmp)
	}

	for i, a := range arts {
		if err := os.Rename(staged[i], filepath.Join(dir, a.Name)); err != nil {
			cleanup(staged[i:])
			return fmt.Errorf("generate: install %s: %w", a.Name, err)
		}
	}
	return nil
}

func stage(dir string, a verilog.Artifact) (string, error) {
	f, err := os.CreateTemp(dir, "."+a.Name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("generate: stage %s: %w", a.Name, err)
	}
	name := f.Name()

	_, werr := f.Write(a.Content)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(name, 0o644)
	}
	if werr != nil {
		os.Remove(name)
		return "", fmt.Errorf("generate: stage %s: %w", a.Name, werr)
	}
	return name, nil
}
