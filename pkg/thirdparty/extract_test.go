package thirdparty

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type tarEntry struct {
	name     string
	body     string
	typeflag byte
	linkname string
}

func writeTar(t *testing.T, path string, gz bool, entries []tarEntry) {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Typeflag: e.typeflag, Linkname: e.linkname, Mode: 0o644}
		switch e.typeflag {
		case tar.TypeDir:
			hdr.Mode = 0o755
		case tar.TypeReg:
			hdr.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header %s: %v", e.name, err)
		}
		if e.typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write body %s: %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}

	data := buf.Bytes()
	if gz {
		var gzBuf bytes.Buffer
		zw := gzip.NewWriter(&gzBuf)
		zw.Write(data)
		zw.Close()
		data = gzBuf.Bytes()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
}

var nestedArchive = []tarEntry{
	{name: "zlib-1.3/", typeflag: tar.TypeDir},
	{name: "zlib-1.3/README", body: "zlib", typeflag: tar.TypeReg},
	{name: "zlib-1.3/src/inflate.c", body: "int main;", typeflag: tar.TypeReg},
	{name: "zlib-1.3/link", typeflag: tar.TypeSymlink, linkname: "README"},
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func assertNoTempDirs(t *testing.T, dir string) {
	t.Helper()
	matches, _ := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	if len(matches) != 0 {
		t.Errorf("temp dirs left behind: %v", matches)
	}
}

func TestEnsureExtracted(t *testing.T) {
	tests := []struct {
		name      string
		gz        bool
		innerRoot string
		wantFile  string
	}{
		{name: "plain tar with inner root", innerRoot: "zlib-1.3", wantFile: "README"},
		{name: "gzip tar with inner root", gz: true, innerRoot: "zlib-1.3", wantFile: "src/inflate.c"},
		{name: "whole tree", gz: true, wantFile: "zlib-1.3/README"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, root := newTestInstaller(t)
			archive := filepath.Join(root, "downloads", "zlib.tar")
			if err := os.MkdirAll(filepath.Dir(archive), 0o755); err != nil {
				t.Fatalf("mkdir: %v", err)
			}
			writeTar(t, archive, tt.gz, nestedArchive)
			target := filepath.Join(root, "deps", "zlib")

			if err := inst.EnsureExtracted(archive, target, tt.innerRoot); err != nil {
				t.Fatalf("EnsureExtracted() error = %v", err)
			}
			if _, err := os.Stat(filepath.Join(target, filepath.FromSlash(tt.wantFile))); err != nil {
				t.Errorf("expected %s in target: %v", tt.wantFile, err)
			}
			assertNoTempDirs(t, filepath.Dir(archive))
		})
	}
}

func TestEnsureExtractedKeepsSymlinks(t *testing.T) {
	inst, root := newTestInstaller(t)
	archive := filepath.Join(root, "zlib.tar")
	writeTar(t, archive, false, nestedArchive)
	target := filepath.Join(root, "zlib")

	if err := inst.EnsureExtracted(archive, target, "zlib-1.3"); err != nil {
		t.Fatalf("EnsureExtracted() error = %v", err)
	}
	if got := readFile(t, filepath.Join(target, "link")); got != "zlib" {
		t.Errorf("symlink content = %q, want %q", got, "zlib")
	}
}

func TestEnsureExtractedRefusesExistingTarget(t *testing.T) {
	inst, root := newTestInstaller(t)
	archive := filepath.Join(root, "zlib.tar")
	writeTar(t, archive, false, nestedArchive)

	target := filepath.Join(root, "zlib")
	if err := os.MkdirAll(target, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	keep := filepath.Join(target, "keep.txt")
	if err := os.WriteFile(keep, []byte("original"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := inst.EnsureExtracted(archive, target, "zlib-1.3")
	var structErr *StructuralError
	if !errors.As(err, &structErr) || !errors.Is(err, ErrTargetExists) {
		t.Fatalf("EnsureExtracted() error = %v, want ErrTargetExists", err)
	}

	entries, _ := os.ReadDir(target)
	if len(entries) != 1 || readFile(t, keep) != "original" {
		t.Errorf("existing target modified: %v", entries)
	}
}

func TestEnsureExtractedMissingInnerRoot(t *testing.T) {
	inst, root := newTestInstaller(t)
	archive := filepath.Join(root, "zlib.tar")
	writeTar(t, archive, true, nestedArchive)
	target := filepath.Join(root, "zlib")

	err := inst.EnsureExtracted(archive, target, "zlib-9.9")
	if !errors.Is(err, ErrInnerRootMissing) {
		t.Fatalf("EnsureExtracted() error = %v, want ErrInnerRootMissing", err)
	}
	if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("target created despite failure")
	}
	assertNoTempDirs(t, root)
}

func TestEnsureExtractedMissingArchive(t *testing.T) {
	inst, root := newTestInstaller(t)
	err := inst.EnsureExtracted(filepath.Join(root, "nope.tar"), filepath.Join(root, "zlib"), "")
	if !errors.Is(err, ErrArchiveNotFound) {
		t.Fatalf("EnsureExtracted() error = %v, want ErrArchiveNotFound", err)
	}
}

func TestEnsureExtractedRejectsUnsafeEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []tarEntry
	}{
		{
			name:    "parent traversal",
			entries: []tarEntry{{name: "../evil.txt", body: "x", typeflag: tar.TypeReg}},
		},
		{
			name:    "symlink escaping root",
			entries: []tarEntry{{name: "escape", typeflag: tar.TypeSymlink, linkname: "../../etc/passwd"}},
		},
		{
			name: "chained symlinks",
			entries: []tarEntry{
				{name: "sub/", typeflag: tar.TypeDir},
				{name: "sub/y", typeflag: tar.TypeSymlink, linkname: ".."},
				{name: "sub/y/w", typeflag: tar.TypeSymlink, linkname: ".."},
				{name: "sub/y/w/evil.txt", body: "pwned", typeflag: tar.TypeReg},
			},
		},
		{
			name: "file over symlink",
			entries: []tarEntry{
				{name: "keep", body: "original", typeflag: tar.TypeReg},
				{name: "f", typeflag: tar.TypeSymlink, linkname: "keep"},
				{name: "f", body: "overwritten", typeflag: tar.TypeReg},
			},
		},
		{
			name:    "absolute symlink",
			entries: []tarEntry{{name: "abs", typeflag: tar.TypeSymlink, linkname: "/etc/passwd"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, root := newTestInstaller(t)
			archive := filepath.Join(root, "evil.tar")
			writeTar(t, archive, false, tt.entries)
			target := filepath.Join(root, "evil")

			err := inst.EnsureExtracted(archive, target, "")
			if !errors.Is(err, ErrUnsafeEntry) {
				t.Fatalf("EnsureExtracted() error = %v, want ErrUnsafeEntry", err)
			}
			if _, err := os.Stat(target); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("target created despite unsafe entry")
			}
			if _, err := os.Stat(filepath.Join(root, "evil.txt")); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("entry escaped the extraction root")
			}
			assertNoTempDirs(t, root)
		})
	}
}

func TestEnsureExtractedStoresCleanLinkTargets(t *testing.T) {
	inst, root := newTestInstaller(t)
	archive := filepath.Join(root, "links.tar")
	writeTar(t, archive, false, []tarEntry{
		{name: "sub/", typeflag: tar.TypeDir},
		{name: "sub/l", typeflag: tar.TypeSymlink, linkname: "q/../../x"},
		{name: "sub/q", typeflag: tar.TypeSymlink, linkname: ".."},
		{name: "x", body: "inside", typeflag: tar.TypeReg},
	})
	target := filepath.Join(root, "links")

	if err := inst.EnsureExtracted(archive, target, ""); err != nil {
		t.Fatalf("EnsureExtracted() error = %v", err)
	}

	link, err := os.Readlink(filepath.Join(target, "sub", "l"))
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if want := filepath.Join("..", "x"); link != want {
		t.Errorf("link target = %q, want %q", link, want)
	}
	if got := readFile(t, filepath.Join(target, "sub", "l")); got != "inside" {
		t.Errorf("link content = %q, want %q", got, "inside")
	}
}
