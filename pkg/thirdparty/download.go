package thirdparty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureDownloaded fetches url into target unless target already exists.
// With force set an existing target is deleted and fetched again.
//
// The body is streamed in fixed-size chunks into a temporary sibling file
// which is renamed onto target only after a complete transfer, so a failed
// download never leaves a file that a later call would mistake for a cached
// copy. Failures are returned as *DownloadError. The returned bool reports
// whether a transfer happened.
func (i *Installer) EnsureDownloaded(ctx context.Context, url, target string, force bool) (bool, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return false, &DownloadError{URL: url, Path: target, Err: fmt.Errorf("create parent directory: %w", err)}
	}

	if _, err := os.Stat(target); err == nil {
		if !force {
			i.logInfo("Already downloaded: %s", target)
			return false, nil
		}
		if err := i.guard.Delete(target); err != nil {
			return false, &DownloadError{URL: url, Path: target, Err: err}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, &DownloadError{URL: url, Path: target, Err: err}
	}

	i.logInfo("Downloading %s...", url)
	n, err := i.download(ctx, url, target)
	if err != nil {
		i.logError("Download failed: %s", url)
		return false, &DownloadError{URL: url, Path: target, Err: err}
	}

	i.logInfo("Downloaded %d bytes to %s", n, target)
	return true, nil
}

func (i *Installer) download(ctx context.Context, url, target string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTP GET failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	part := fmt.Sprintf("%s.%s.part", target, uuid.NewString())
	f, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %q: %w", part, err)
	}

	n, err := io.CopyBuffer(onlyWriter{f}, onlyReader{resp.Body}, make([]byte, i.chunkSize))
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(part, target)
	}
	if err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("failed to write file %q: %w", target, err)
	}

	return n, nil
}

// onlyReader and onlyWriter hide WriterTo and ReaderFrom so io.CopyBuffer
// streams through the fixed-size buffer.
type onlyReader struct {
	io.Reader
}

type onlyWriter struct {
	io.Writer
}
