package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Aman-CERP/ds/internal/ui"
)

// MinDiskSpaceBytes is the minimum free space wanted for the history store (100MB).
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks the free space on the volume holding the history
// store. The store is optional, so a shortage is only a warning.
func (c *Checker) CheckDiskSpace() CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: false,
	}

	path := existingAncestor(c.dataDir)
	available, err := c.probe.FreeDiskSpace(path)
	if err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%s free (minimum: 100 MB)", ui.FormatBytes(available))
	result.Details = path
	if available < MinDiskSpaceBytes {
		result.Status = StatusWarn
		return result
	}

	result.Status = StatusPass
	return result
}

// existingAncestor walks up from path until it finds a directory that
// exists, so the check works before the data directory is created.
func existingAncestor(path string) string {
	if path == "" {
		path = "."
	}
	path = filepath.Clean(path)
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
