package thirdparty

import (
	"errors"
	"fmt"
)

var (
	ErrNoGuardRoot            = errors.New("thirdparty: no guard root configured")
	ErrArchiveNotFound        = errors.New("thirdparty: archive not found")
	ErrTargetExists           = errors.New("thirdparty: target directory already exists")
	ErrInnerRootMissing       = errors.New("thirdparty: inner root directory missing from archive")
	ErrUnsafeEntry            = errors.New("thirdparty: archive entry escapes extraction root")
	ErrUnsupportedCompression = errors.New("thirdparty: unsupported archive compression")
)

// SafetyViolation is the panic value raised when a deletion targets a path
// outside the guard root. It marks a programming or configuration defect and
// is never returned as an error.
type SafetyViolation struct {
	Root string
	Path string
}

func (v *SafetyViolation) Error() string {
	if v.Root == "" {
		return fmt.Sprintf("thirdparty: refusing to delete %q: no guard root configured", v.Path)
	}
	return fmt.Sprintf("thirdparty: refusing to delete %q: not inside guard root %q", v.Path, v.Root)
}

// StructuralError reports an extraction that cannot proceed because the
// filesystem or the archive layout is not what the caller expects.
type StructuralError struct {
	Path string
	Err  error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Path)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// DownloadError reports a failed transfer. Nothing is left at Path.
type DownloadError struct {
	URL  string
	Path string
	Err  error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s to %s failed: %v (you can download it manually and place it at %s)",
		e.URL, e.Path, e.Err, e.Path)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// InstallError reports a failed installer run. The target directory has been
// removed by the time it is returned.
type InstallError struct {
	Target string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install third-party into %s failed: %v", e.Target, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }
