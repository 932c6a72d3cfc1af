package thirdparty

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MarkerFileName is the sentinel written into a target directory once its
// installer has completed. Its presence is the only signal; the content is
// informational.
const MarkerFileName = ".installed-as-parent-third-party"

// InstallFunc populates a target directory.
type InstallFunc func(ctx context.Context) error

// IsInstalled reports whether targetDir carries the installation marker.
func IsInstalled(targetDir string) bool {
	info, err := os.Stat(filepath.Join(targetDir, MarkerFileName))
	return err == nil && info.Mode().IsRegular()
}

// EnsureInstalled runs install unless targetDir already carries the marker
// (and force is false). Any previous content of targetDir is deleted first.
//
// When install fails, targetDir is removed and an *InstallError is returned:
// either the marker exists and the directory is complete, or the directory
// does not exist at all. The returned bool reports whether install ran.
func (i *Installer) EnsureInstalled(ctx context.Context, targetDir string, install InstallFunc, force bool) (bool, error) {
	if !force && IsInstalled(targetDir) {
		i.logInfo("Already installed: %s", targetDir)
		return false, nil
	}

	if err := i.guard.Delete(targetDir); err != nil {
		return false, &InstallError{Target: targetDir, Err: err}
	}

	i.logInfo("Installing into %s...", targetDir)
	if err := install(ctx); err != nil {
		if cleanupErr := i.guard.Delete(targetDir); cleanupErr != nil {
			i.logError("Cleanup of %s failed: %v", targetDir, cleanupErr)
		}
		return false, &InstallError{Target: targetDir, Err: err}
	}

	if err := writeMarker(targetDir); err != nil {
		if cleanupErr := i.guard.Delete(targetDir); cleanupErr != nil {
			i.logError("Cleanup of %s failed: %v", targetDir, cleanupErr)
		}
		return false, &InstallError{Target: targetDir, Err: err}
	}

	i.logInfo("Installed: %s", targetDir)
	return true, nil
}

func writeMarker(targetDir string) error {
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}
	content := fmt.Sprintf("Installed as parent third-party dependency.\ntarget: %s\ntime: %s\n",
		filepath.Base(targetDir), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(filepath.Join(targetDir, MarkerFileName), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write install marker: %w", err)
	}
	return nil
}
