package thirdparty

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Guard restricts deletions to the subtree below a single root directory.
// It is created once at startup and never changes afterwards.
type Guard struct {
	root string
}

// NewGuard returns a Guard rooted at the absolute, cleaned form of root.
func NewGuard(root string) (*Guard, error) {
	if strings.TrimSpace(root) == "" {
		return nil, ErrNoGuardRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve guard root %q: %w", root, err)
	}
	return &Guard{root: filepath.Clean(abs)}, nil
}

// Root returns the guard root.
func (g *Guard) Root() string {
	if g == nil {
		return ""
	}
	return g.root
}

// Contains reports whether path is a strict descendant of the guard root.
// The root itself is not contained.
func (g *Guard) Contains(path string) bool {
	if g == nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return isStrictlyWithin(abs, g.root)
}

// Delete removes path recursively when it is a directory, removes it when it
// is any other entry, and does nothing when it does not exist.
//
// Delete panics with a *SafetyViolation when path is not a strict descendant
// of the guard root, before touching the filesystem.
func (g *Guard) Delete(path string) error {
	abs := g.mustContain(path)

	info, err := os.Lstat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}

	if info.IsDir() {
		err = os.RemoveAll(abs)
	} else {
		err = os.Remove(abs)
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", abs, err)
	}
	return nil
}

// WithTempDir creates a uniquely named directory below base, passes it to fn
// and deletes it through the guard on every exit path, panics included.
// A cleanup failure is joined to the error returned by fn.
func (g *Guard) WithTempDir(base string, fn func(dir string) error) (err error) {
	dir := filepath.Join(base, ".tmp-"+uuid.NewString())
	g.mustContain(dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() {
		if cleanupErr := g.Delete(dir); cleanupErr != nil {
			err = errors.Join(err, cleanupErr)
		}
	}()

	return fn(dir)
}

func (g *Guard) mustContain(path string) string {
	if g == nil || g.root == "" {
		panic(&SafetyViolation{Path: path})
	}
	abs, err := filepath.Abs(path)
	if err != nil || !isStrictlyWithin(abs, g.root) {
		panic(&SafetyViolation{Root: g.root, Path: path})
	}
	return abs
}

func isWithin(path, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)))
}

func isStrictlyWithin(path, root string) bool {
	return filepath.Clean(path) != filepath.Clean(root) && isWithin(path, root)
}
