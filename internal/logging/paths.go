package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// LogFileName is the name of the active log file inside DefaultLogDir.
const LogFileName = "ds.log"

// DefaultLogDir returns the default log directory (~/.ds/logs/).
// Falls back to the temp directory if the home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ds", "logs")
	}
	return filepath.Join(home, ".ds", "logs")
}

// DefaultLogPath returns the default log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), LogFileName)
}

// FindLogFile attempts to find the log file for viewing.
// An explicit path wins; otherwise ~/.ds/logs/ds.log is used.
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	path := DefaultLogPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("no log file found. Run a search with --debug first.\nExpected at: %s", path)
}

// RotatedFiles returns the rotated siblings of path that exist on disk,
// oldest first (ds.log.5 ... ds.log.1).
func RotatedFiles(path string, maxFiles int) []string {
	var files []string
	for i := maxFiles; i >= 1; i-- {
		p := fmt.Sprintf("%s.%d", path, i)
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	return files
}

// EnsureLogDir creates the directory holding path if it doesn't exist.
func EnsureLogDir(path string) error {
	if path == "" {
		path = DefaultLogPath()
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
