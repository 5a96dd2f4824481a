package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExecutableDir returns the directory of the running binary with symlinks resolved
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %v", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %v", err)
	}

	return filepath.Dir(exe), nil
}

// DatasetCandidates lists where a relative dataset path is looked up, in order:
// the working directory, the executable directory and its data/ subdirectory
func DatasetCandidates(path string) []string {
	if filepath.IsAbs(path) {
		return []string{path}
	}

	candidates := []string{path}
	if exeDir, err := ExecutableDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(exeDir, path),
			filepath.Join(exeDir, "data", path))
	}
	return candidates
}

// ResolveDatasetPath returns the first existing candidate of path. When none
// exists the path is returned unchanged so the loader reports it as missing.
func (c *Config) ResolveDatasetPath() string {
	for _, candidate := range DatasetCandidates(c.Dataset.Path) {
		if FileExists(candidate) {
			return candidate
		}
	}
	return c.Dataset.Path
}

// FileExists reports whether path names an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
