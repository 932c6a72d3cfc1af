package lottieinline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kataras/lottie-inline/pkg/lottie"
)

type recordLogger struct {
	infos, warns, errs []string
}

func (l *recordLogger) Infof(f string, a ...any)  { l.infos = append(l.infos, f) }
func (l *recordLogger) Warnf(f string, a ...any)  { l.warns = append(l.warns, f) }
func (l *recordLogger) Errorf(f string, a ...any) { l.errs = append(l.errs, f) }

func writeFixture(t *testing.T, path string, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "anim", "data.json")
	writeFixture(t, input, `{"v":"5.7.4","nm":"Loader","w":100,"h":100,"fr":30,"assets":[
		{"id":"image_0","u":"images/","p":"img_0.png","e":0},
		{"id":"image_1","p":"data:image/png;base64,AAAA","u":"","e":1},
		{"id":"comp_0","layers":[]}
	]}`)
	writeFixture(t, filepath.Join(dir, "anim", "images", "img_0.png"), "png-data")

	output := filepath.Join(dir, "out", "nested", "result.json")
	logger := &recordLogger{}
	res, err := Run(Options{InputPath: input, OutputPath: output, Logger: logger})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(res.Inlined) != 1 || res.Skipped != 2 || res.Precomps != 1 {
		t.Errorf("Run() inlined %d, skipped %d, precomps %d; want 1, 2, 1", len(res.Inlined), res.Skipped, res.Precomps)
	}
	if res.Header.Name != "Loader" {
		t.Errorf("Header.Name = %q, want %q", res.Header.Name, "Loader")
	}
	if len(logger.infos) == 0 {
		t.Errorf("no progress logged")
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if res.Bytes != len(data) {
		t.Errorf("Result.Bytes = %d, want %d", res.Bytes, len(data))
	}

	var out struct {
		Assets []map[string]any `json:"assets"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	want := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("png-data"))
	if got := out.Assets[0]["p"]; got != want {
		t.Errorf("asset 0 p = %v, want %v", got, want)
	}
	if out.Assets[0]["e"] != float64(1) || out.Assets[0]["u"] != "" {
		t.Errorf("asset 0 = %v, want e=1 and u=\"\"", out.Assets[0])
	}
	if out.Assets[1]["p"] != "data:image/png;base64,AAAA" {
		t.Errorf("embedded asset changed: %v", out.Assets[1])
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(output), ".*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestRunFailuresWriteNothing(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(error) bool
		missing bool
	}{
		{
			name:  "missing image",
			input: `{"assets":[{"p":"absent.png","e":0}]}`,
			check: func(err error) bool {
				var missing *lottie.MissingImageError
				return errors.As(err, &missing)
			},
		},
		{
			name:  "malformed JSON",
			input: `{"assets":[{"p":`,
			check: func(err error) bool {
				var parseErr *lottie.ParseError
				return errors.As(err, &parseErr)
			},
		},
		{
			name:  "empty document",
			input: `{}`,
			check: func(err error) bool { return errors.Is(err, lottie.ErrNoData) },
		},
		{
			name:    "missing input",
			missing: true,
			check:   func(err error) bool { return errors.Is(err, os.ErrNotExist) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := filepath.Join(dir, "data.json")
			if !tt.missing {
				writeFixture(t, input, tt.input)
			}
			output := filepath.Join(dir, "out", "result.json")

			_, err := Run(Options{InputPath: input, OutputPath: output})
			if err == nil || !tt.check(err) {
				t.Fatalf("Run() error = %v", err)
			}
			if _, err := os.Stat(output); !errors.Is(err, os.ErrNotExist) {
				t.Errorf("output written despite failure")
			}
		})
	}
}

func TestRunRequiresPaths(t *testing.T) {
	if _, err := Run(Options{InputPath: "in.json"}); !errors.Is(err, ErrMissingPath) {
		t.Errorf("Run() error = %v, want ErrMissingPath", err)
	}
}

func TestRunOverwritesOutput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.json")
	writeFixture(t, input, `{"v":"5.7.4","assets":[]}`)
	output := filepath.Join(dir, "result.json")
	writeFixture(t, output, "stale content that is longer than the new output")

	if _, err := Run(Options{InputPath: input, OutputPath: output}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	data, _ := os.ReadFile(output)
	if strings.Contains(string(data), "stale") {
		t.Errorf("output not replaced: %s", data)
	}
}

func TestWatchReconvertsOnImageChange(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "data.json")
	image := filepath.Join(dir, "img.png")
	output := filepath.Join(dir, "out.json")
	writeFixture(t, input, `{"assets":[{"p":"img.png","e":0}]}`)
	writeFixture(t, image, "first")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan error, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, Options{InputPath: input, OutputPath: output}, func(_ *Result, err error) {
			results <- err
		})
	}()

	waitResult := func() {
		t.Helper()
		select {
		case err := <-results:
			if err != nil {
				t.Fatalf("conversion error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a conversion")
		}
	}

	waitResult()
	writeFixture(t, image, "second")
	waitResult()

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if want := base64.StdEncoding.EncodeToString([]byte("second")); !strings.Contains(string(data), want) {
		t.Errorf("output not refreshed: %s", data)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
