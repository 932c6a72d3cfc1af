package thirdparty

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EnsureExtracted unpacks the tar archive at archivePath into targetDir.
//
// It refuses to run when targetDir already exists. The archive is unpacked
// into a scoped temp directory next to the archive; when innerRoot is set,
// that top-level directory of the archive becomes targetDir instead of the
// whole tree. The final step is a single rename, so targetDir is either
// complete or absent. Plain, gzip and bzip2 compressed tars are accepted.
func (i *Installer) EnsureExtracted(archivePath, targetDir, innerRoot string) error {
	if _, err := os.Lstat(targetDir); err == nil {
		return &StructuralError{Path: targetDir, Err: ErrTargetExists}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat target %s: %w", targetDir, err)
	}

	info, err := os.Stat(archivePath)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
	}
	if err != nil {
		return fmt.Errorf("stat archive %s: %w", archivePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrArchiveNotFound, archivePath)
	}

	return i.guard.WithTempDir(filepath.Dir(archivePath), func(tmp string) error {
		i.logInfo("Extracting %s...", filepath.Base(archivePath))
		if err := i.extractTar(archivePath, tmp); err != nil {
			return fmt.Errorf("extract %s: %w", archivePath, err)
		}

		src := tmp
		if innerRoot != "" {
			src = filepath.Join(tmp, innerRoot)
			if !isWithin(src, tmp) {
				return &StructuralError{Path: innerRoot, Err: ErrUnsafeEntry}
			}
			if info, err := os.Lstat(src); err != nil || !info.IsDir() {
				return &StructuralError{Path: innerRoot, Err: ErrInnerRootMissing}
			}
		}

		if err := os.MkdirAll(filepath.Dir(targetDir), 0o755); err != nil {
			return fmt.Errorf("create parent of %s: %w", targetDir, err)
		}
		if err := os.Rename(src, targetDir); err != nil {
			return fmt.Errorf("move extracted tree to %s: %w", targetDir, err)
		}

		i.logInfo("Extracted to %s", targetDir)
		return nil
	})
}

func (i *Installer) extractTar(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := decompress(bufio.NewReader(f))
	if err != nil {
		return err
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return &StructuralError{Path: hdr.Name, Err: ErrUnsafeEntry}
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		if err := i.extractEntry(tr, hdr, dest); err != nil {
			return err
		}
	}
}

// decompress sniffs the stream's magic bytes and wraps it accordingly.
func decompress(r *bufio.Reader) (io.Reader, error) {
	magic, err := r.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read archive header: %w", err)
	}

	switch {
	case bytes.HasPrefix(magic, []byte{0x1f, 0x8b}):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return gz, nil
	case bytes.HasPrefix(magic, []byte("BZh")):
		return bzip2.NewReader(r), nil
	case bytes.HasPrefix(magic, []byte{0xfd, '7', 'z'}):
		return nil, fmt.Errorf("%w: xz", ErrUnsupportedCompression)
	default:
		return r, nil
	}
}

func (i *Installer) extractEntry(tr *tar.Reader, hdr *tar.Header, dest string) error {
	name := filepath.FromSlash(strings.TrimPrefix(hdr.Name, "/"))
	target := filepath.Join(dest, name)
	if !isWithin(target, dest) {
		return &StructuralError{Path: hdr.Name, Err: ErrUnsafeEntry}
	}
	if hdr.Typeflag != tar.TypeXGlobalHeader {
		if err := noSymlinkBelow(dest, target); err != nil {
			return &StructuralError{Path: hdr.Name, Err: err}
		}
	}
	mode := hdr.FileInfo().Mode().Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, mode|0o700)

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode|0o600)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return fmt.Errorf("write %s: %w", hdr.Name, err)
		}
		return out.Close()

	case tar.TypeSymlink:
		// The link is stored in lexically cleaned form, so "x/.." can never
		// resolve through a symlink created later under x.
		link := filepath.Clean(filepath.FromSlash(hdr.Linkname))
		if hdr.Linkname == "" || filepath.IsAbs(link) || strings.HasPrefix(hdr.Linkname, "/") {
			return &StructuralError{Path: hdr.Name + " -> " + hdr.Linkname, Err: ErrUnsafeEntry}
		}
		resolved := filepath.Join(filepath.Dir(target), link)
		if !isWithin(resolved, dest) {
			return &StructuralError{Path: hdr.Name + " -> " + hdr.Linkname, Err: ErrUnsafeEntry}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.Symlink(link, target)

	case tar.TypeLink:
		source := filepath.Join(dest, filepath.FromSlash(strings.TrimPrefix(hdr.Linkname, "/")))
		if !isWithin(source, dest) {
			return &StructuralError{Path: hdr.Name + " -> " + hdr.Linkname, Err: ErrUnsafeEntry}
		}
		if err := noSymlinkBelow(dest, source); err != nil {
			return &StructuralError{Path: hdr.Name + " -> " + hdr.Linkname, Err: err}
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.Link(source, target)

	case tar.TypeXGlobalHeader:
		return nil

	default:
		i.logWarn("Skipping unsupported tar entry %s (type %q)", hdr.Name, hdr.Typeflag)
		return nil
	}
}

// noSymlinkBelow returns ErrUnsafeEntry when an existing component of path
// below dest, path itself included, is a symbolic link. Entries are never
// written through a link, so a chain of links cannot lead outside dest.
func noSymlinkBelow(dest, path string) error {
	rel, err := filepath.Rel(dest, path)
	if err != nil {
		return ErrUnsafeEntry
	}
	if rel == "." {
		return nil
	}

	cur := dest
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		cur = filepath.Join(cur, part)
		info, err := os.Lstat(cur)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return ErrUnsafeEntry
		}
	}
	return nil
}
