package config

import (
	"os"

	"go.trai.ch/lumenv/internal/core/ports"
	"go.trai.ch/zerr"
)

// WorkspaceRoot returns the directory holding the configuration file found
// from the working directory, or the working directory when there is none.
// State under .lumenv is kept relative to this directory.
func WorkspaceRoot(loader ports.ConfigLoader) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", zerr.Wrap(err, "failed to get working directory")
	}
	if m, err := loader.Load(cwd); err == nil && m.Root != "" {
		return m.Root, nil
	}
	return cwd, nil
}
