package diagnostics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// LogSuffix is the filename suffix of engine diagnostic logs.
const LogSuffix = ".diagnostics.log"

// ErrUnavailable reports that no diagnostic log could be found. Callers
// treat it as non-fatal: the validation_message column is simply left out.
var ErrUnavailable = errors.New("no diagnostics log found")

// DefaultDir is where the execution engine conventionally drops its
// diagnostic logs.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, "modelprof", "diagnostics")
}

// FindLatest returns the most recently modified diagnostic log in dir.
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrUnavailable
		}
		return "", fmt.Errorf("failed to read diagnostics directory: %w", err)
	}

	var latest string
	var latestMod int64
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), LogSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); latest == "" || mod > latestMod {
			latest = filepath.Join(dir, entry.Name())
			latestMod = mod
		}
	}
	if latest == "" {
		return "", ErrUnavailable
	}
	return latest, nil
}

// ReadText reads the whole log as a string.
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read diagnostics log: %w", err)
	}
	return string(data), nil
}
