package lottieinline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kataras/lottie-inline/pkg/lottie"
)

// Version is the release of the lottie-inline tools.
const Version = "0.1.0"

// ErrMissingPath is returned when the input or output path is empty.
var ErrMissingPath = errors.New("input and output paths are required")

// Options configures a conversion.
type Options struct {
	InputPath  string // Lottie JSON to read
	OutputPath string // where the self-contained JSON is written
	Logger     Logger // nil = no logging
}

// Logger receives progress messages. A nil Logger means silent operation.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Result contains the conversion output.
type Result struct {
	OutputPath string
	Header     lottie.Header
	Inlined    []lottie.InlinedAsset
	Skipped    int // assets left as they were (embedded, precomps, no "p")
	Precomps   int // precomposition assets, counted in Skipped
	Bytes      int // size of the written JSON
}

func (o *Options) logInfo(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Infof(f, a...)
	}
}

func (o *Options) logWarn(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Warnf(f, a...)
	}
}

func (o *Options) logError(f string, a ...any) {
	if o.Logger != nil {
		o.Logger.Errorf(f, a...)
	}
}

// Run reads the input document, embeds its external images and writes the
// result to the output path. Nothing is written unless every step succeeds.
func Run(opts Options) (*Result, error) {
	if opts.InputPath == "" || opts.OutputPath == "" {
		return nil, ErrMissingPath
	}

	opts.logInfo("Reading %s...", opts.InputPath)
	data, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	doc, err := lottie.Parse(data)
	if err != nil {
		return nil, err
	}

	header := doc.Header()
	if header.Name != "" {
		opts.logInfo("Animation: %s (%gx%g @ %gfps)", header.Name, header.Width, header.Height, header.FrameRate)
	}

	inliner := &lottie.Inliner{BaseDir: filepath.Dir(opts.InputPath)}
	inlined, err := inliner.Inline(doc)
	if err != nil {
		return nil, err
	}
	for _, a := range inlined {
		opts.logInfo("Inlined %s (%s, %d bytes)", a.Source, a.MIMEType, a.Size)
	}
	if len(inlined) == 0 {
		opts.logWarn("No external images found, output equals input")
	}

	out, err := doc.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode output: %w", err)
	}

	if err := writeOutput(opts.OutputPath, out); err != nil {
		opts.logError("Writing %s failed", opts.OutputPath)
		return nil, err
	}

	precomps := 0
	for _, a := range doc.Assets {
		if a.IsPrecomp() {
			precomps++
		}
	}
	if precomps > 0 {
		opts.logInfo("Kept %d precomposition(s) as they were", precomps)
	}

	return &Result{
		OutputPath: opts.OutputPath,
		Header:     header,
		Inlined:    inlined,
		Skipped:    len(doc.Assets) - len(inlined),
		Precomps:   precomps,
		Bytes:      len(out),
	}, nil
}

// writeOutput creates the output directory if needed and replaces path
// atomically through a temporary file in the same directory.
func writeOutput(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %q: %w", dir, err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0o644)
	}
	if err == nil {
		err = os.Rename(tmpName, path)
	}
	if err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file %q: %w", path, err)
	}
	return nil
}
