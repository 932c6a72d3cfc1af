// Package manifest loads the list of third-party dependencies installed by
// the thirdparty command. Manifests are TOML or YAML, chosen by extension.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnsupportedFormat = errors.New("manifest: unsupported file extension")
	ErrInvalid           = errors.New("manifest: invalid")
	ErrUnknownDependency = errors.New("manifest: unknown dependency")
)

// Dependency is one archive to download, extract and install.
type Dependency struct {
	Name        string
	URL         string
	Archive     string // absolute path of the downloaded archive
	Target      string // absolute install directory
	InnerRoot   string // directory inside the archive to install, may be empty
	Force       bool
	PostInstall []string // shell commands run inside Target after extraction
}

type Manifest struct {
	Path         string
	GuardRoot    string
	Dependencies []Dependency
}

type fileDependency struct {
	Name        string   `toml:"name" yaml:"name"`
	URL         string   `toml:"url" yaml:"url"`
	Archive     string   `toml:"archive" yaml:"archive"`
	Target      string   `toml:"target" yaml:"target"`
	InnerRoot   string   `toml:"inner_root" yaml:"inner_root"`
	Force       bool     `toml:"force" yaml:"force"`
	PostInstall []string `toml:"post_install" yaml:"post_install"`
}

type fileManifest struct {
	GuardRoot    string           `toml:"guard_root" yaml:"guard_root"`
	Dependencies []fileDependency `toml:"dependency" yaml:"dependency"`
}

// Load reads and validates the manifest at path. Relative paths are resolved
// against the manifest's directory; archive and target paths must live
// strictly inside guard_root.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}

	var raw fileManifest
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".toml":
		err = decodeTOML(abs, &raw)
	case ".yaml", ".yml":
		err = decodeYAML(abs, &raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(abs))
	}
	if err != nil {
		return nil, err
	}

	return resolve(abs, raw)
}

func decodeTOML(path string, raw *fileManifest) error {
	meta, err := toml.DecodeFile(path, raw)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	if !meta.IsDefined("guard_root") {
		return fmt.Errorf("%w: guard_root is required", ErrInvalid)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("%w: unknown key %q", ErrInvalid, undecoded[0].String())
	}
	return nil
}

func decodeYAML(path string, raw *fileManifest) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	return nil
}

func resolve(manifestPath string, raw fileManifest) (*Manifest, error) {
	base := filepath.Dir(manifestPath)

	guardRoot := strings.TrimSpace(raw.GuardRoot)
	if guardRoot == "" {
		return nil, fmt.Errorf("%w: guard_root is required", ErrInvalid)
	}
	guardRoot = absFrom(base, guardRoot)

	m := &Manifest{Path: manifestPath, GuardRoot: guardRoot}
	seen := make(map[string]bool, len(raw.Dependencies))
	owner := make(map[string]string) // archive and target paths to dependency name

	for i, d := range raw.Dependencies {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: dependency %d has no name", ErrInvalid, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate dependency %q", ErrInvalid, name)
		}
		seen[name] = true

		rawURL := strings.TrimSpace(d.URL)
		u, err := url.Parse(rawURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("%w: dependency %q has an invalid url %q", ErrInvalid, name, rawURL)
		}

		target := strings.TrimSpace(d.Target)
		if target == "" {
			target = name
		}
		archive := strings.TrimSpace(d.Archive)
		if archive == "" {
			archive = filepath.Join("downloads", path.Base(u.Path))
		}

		dep := Dependency{
			Name:        name,
			URL:         rawURL,
			Archive:     absFrom(guardRoot, archive),
			Target:      absFrom(guardRoot, target),
			InnerRoot:   filepath.FromSlash(strings.TrimSpace(d.InnerRoot)),
			Force:       d.Force,
			PostInstall: d.PostInstall,
		}
		if !within(guardRoot, dep.Archive) {
			return nil, fmt.Errorf("%w: archive of %q is outside guard_root: %s", ErrInvalid, name, dep.Archive)
		}
		if !within(guardRoot, dep.Target) {
			return nil, fmt.Errorf("%w: target of %q is outside guard_root: %s", ErrInvalid, name, dep.Target)
		}
		for _, p := range []string{dep.Archive, dep.Target} {
			if other, ok := owner[p]; ok {
				return nil, fmt.Errorf("%w: %q and %q share the path %s", ErrInvalid, other, name, p)
			}
			owner[p] = name
		}
		m.Dependencies = append(m.Dependencies, dep)
	}

	return m, nil
}

// Select returns the dependencies named in names, in manifest order.
// An empty names selects everything.
func (m *Manifest) Select(names []string) ([]Dependency, error) {
	if len(names) == 0 {
		return m.Dependencies, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimSpace(n)] = true
	}

	var deps []Dependency
	for _, d := range m.Dependencies {
		if want[d.Name] {
			deps = append(deps, d)
			delete(want, d.Name)
		}
	}
	for n := range want {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDependency, n)
	}
	return deps, nil
}

// absFrom resolves p against base when relative.
func absFrom(base, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
