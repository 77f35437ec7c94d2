// Package localstate keeps diaryctl's per-user defaults (service URL, API
// key) in a dot directory under $HOME.
package localstate

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	envHome       = "DIARY_HOME" // override for tests
	dirName       = ".tsuzuri"   // default under $HOME
	stateFilename = "diaryctl.json"
)

// DataDir returns the directory where local state is stored (~/.tsuzuri).
// It creates the directory with 0700 permissions if it does not exist.
func DataDir() (string, error) {
	if custom := os.Getenv(envHome); custom != "" {
		if err := os.MkdirAll(custom, 0o700); err != nil {
			return "", err
		}
		return custom, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine user home: %w", err)
	}
	dir := filepath.Join(home, dirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// StatePath returns the absolute path to the diaryctl state file.
func StatePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFilename), nil
}
