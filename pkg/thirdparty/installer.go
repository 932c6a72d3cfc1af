// Package thirdparty downloads, extracts and installs third-party
// dependencies below a guard root. Every deletion it performs goes through a
// Guard, so a misconfigured path can never remove anything outside the
// sanctioned subtree.
package thirdparty

import (
	"net/http"
	"time"
)

// DefaultChunkSize is the buffer size used to stream downloads to disk.
const DefaultChunkSize = 64 * 1024

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Config configures an Installer.
type Config struct {
	Guard      *Guard       // required
	HTTPClient *http.Client // nil = NewHTTPClient()
	ChunkSize  int          // 0 = DefaultChunkSize
	Logger     Logger       // nil = no logging
}

// Installer performs guarded, idempotent download, extraction and install steps.
type Installer struct {
	guard     *Guard
	client    *http.Client
	chunkSize int
	logger    Logger
}

// NewInstaller returns an Installer. It fails when no guard is configured.
func NewInstaller(cfg Config) (*Installer, error) {
	if cfg.Guard == nil {
		return nil, ErrNoGuardRoot
	}

	client := cfg.HTTPClient
	if client == nil {
		client = NewHTTPClient()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Installer{
		guard:     cfg.Guard,
		client:    client,
		chunkSize: chunkSize,
		logger:    cfg.Logger,
	}, nil
}

// NewHTTPClient returns the client used for downloads: pooled connections,
// HTTP/2 disabled for stability on large archives and no overall timeout, so
// a slow transfer is bounded only by the caller's context.
func NewHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   false,
	}
	return &http.Client{Transport: transport}
}

// Guard returns the guard used for every deletion.
func (i *Installer) Guard() *Guard { return i.guard }

func (i *Installer) logInfo(f string, a ...any) {
	if i.logger != nil {
		i.logger.Infof(f, a...)
	}
}

func (i *Installer) logWarn(f string, a ...any) {
	if i.logger != nil {
		i.logger.Warnf(f, a...)
	}
}

func (i *Installer) logError(f string, a ...any) {
	if i.logger != nil {
		i.logger.Errorf(f, a...)
	}
}
