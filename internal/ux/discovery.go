package ux

import (
	"os"
	"path/filepath"
)

// DirName is the per-project verdict directory
const DirName = ".verdict"

// DiscoverConfigFile looks for <DirName>/<filename> in the current directory
// and its parents, stopping at the first directory holding .git.
// found is false when no file exists; path is then the current-directory location.
func DiscoverConfigFile(filename string) (path string, found bool, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, err
	}

	return discoverFrom(cwd, filename)
}

func discoverFrom(start, filename string) (string, bool, error) {
	dir := start
	for {
		candidate := filepath.Join(dir, DirName, filename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		}

		// Stop at git root
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return filepath.Join(start, DirName, filename), false, nil
}
