// Package logging configures the zerolog console logger used by the
// command line tools.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "LOTTIE_LOG_LEVEL"
	EnvLogTimestamp = "LOTTIE_LOG_TIMESTAMP"
	EnvLogNoColor   = "LOTTIE_LOG_NOCOLOR"
)

type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config controls the console output.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	Out       io.Writer // defaults to os.Stderr
}

// New returns a logger for app writing to out, using the profile defaults
// and the LOTTIE_LOG_* environment overrides.
func New(app string, profile Profile, out io.Writer) zerolog.Logger {
	cfg := DefaultConfig(profile)
	cfg.Out = out
	ApplyEnvOverrides(&cfg)
	return NewWithConfig(app, cfg)
}

func NewWithConfig(app string, cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	writer := zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(out),
		NoColor:    cfg.NoColor,
		TimeFormat: time.RFC3339,
	}
	if !cfg.Timestamp {
		writer.PartsExclude = []string{zerolog.TimestampFieldName}
	}

	ctx := zerolog.New(writer).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if app != "" {
		ctx = ctx.Str("app", app)
	}
	return ctx.Logger()
}

func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

func ApplyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		cfg.NoColor = true
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

// Printf adapts a zerolog.Logger to the Infof/Warnf/Errorf logger
// interfaces accepted by the library packages.
type Printf struct {
	Logger zerolog.Logger
}

func (p Printf) Infof(format string, args ...any) {
	p.Logger.Info().Msg(fmt.Sprintf(format, args...))
}

func (p Printf) Warnf(format string, args ...any) {
	p.Logger.Warn().Msg(fmt.Sprintf(format, args...))
}

func (p Printf) Errorf(format string, args ...any) {
	p.Logger.Error().Msg(fmt.Sprintf(format, args...))
}
