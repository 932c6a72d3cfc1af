package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw    string
		want   zerolog.Level
		wantOK bool
	}{
		{raw: "", want: zerolog.InfoLevel},
		{raw: "bogus", want: zerolog.InfoLevel},
		{raw: " DEBUG ", want: zerolog.DebugLevel, wantOK: true},
		{raw: "warning", want: zerolog.WarnLevel, wantOK: true},
		{raw: "off", want: zerolog.Disabled, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseLevel(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogTimestamp, "false")
	t.Setenv(EnvLogNoColor, "1")

	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnvOverrides(&cfg)

	if cfg.Level != zerolog.ErrorLevel || cfg.Timestamp || !cfg.NoColor {
		t.Errorf("ApplyEnvOverrides() = %+v", cfg)
	}
}

func TestApplyEnvOverridesIgnoresInvalid(t *testing.T) {
	t.Setenv(EnvLogLevel, "loud")
	t.Setenv(EnvLogTimestamp, "sometimes")

	cfg := DefaultConfig(ProfileRuntime)
	ApplyEnvOverrides(&cfg)

	if cfg != DefaultConfig(ProfileRuntime) {
		t.Errorf("ApplyEnvOverrides() = %+v, want defaults", cfg)
	}
}

func TestPrintfAdapter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig("thirdparty", Config{Level: zerolog.WarnLevel, NoColor: true, Out: &buf})
	p := Printf{Logger: logger}

	p.Infof("hidden %d", 1)
	p.Warnf("careful with %s", "zlib")
	p.Errorf("failed: %v", "boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info message below level was written: %q", out)
	}
	for _, want := range []string{"careful with zlib", "failed: boom", "app=thirdparty"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestNewHonorsEnvLevel(t *testing.T) {
	t.Setenv(EnvLogLevel, "off")

	var buf bytes.Buffer
	logger := New("thirdparty", ProfileTest, &buf)
	logger.Error().Msg("dropped")

	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}
}
