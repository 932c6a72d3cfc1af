// Package cliutil holds the console, usage/error reporting and shell helpers
// shared by the commands of this module.
package cliutil

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Console writes highlighted status lines to stdout and error lines to stderr.
// Colors follow the terminal: a stream that is not a TTY gets plain text.
type Console struct {
	Stdout io.Writer
	Stderr io.Writer

	info    *color.Color
	command *color.Color
	warn    *color.Color
	fail    *color.Color
}

// NewConsole returns a Console bound to the process stdout and stderr.
func NewConsole() *Console {
	return NewConsoleWriters(os.Stdout, os.Stderr)
}

// NewConsoleWriters returns a Console writing to the given streams.
// Colors are only enabled for *os.File streams attached to a terminal.
func NewConsoleWriters(stdout, stderr io.Writer) *Console {
	c := &Console{
		Stdout:  stdout,
		Stderr:  stderr,
		info:    color.New(color.FgCyan),
		command: color.New(color.FgBlue),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
	}

	outColor := isTerminal(stdout)
	for _, col := range []*color.Color{c.info, c.command, c.warn} {
		setColor(col, outColor)
	}
	setColor(c.fail, isTerminal(stderr))

	return c
}

func setColor(c *color.Color, enabled bool) {
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func isTerminal(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Info prints a highlighted informational line.
func (c *Console) Info(format string, args ...any) {
	c.info.Fprintf(c.Stdout, format+"\n", args...)
}

// Warn prints a warning line.
func (c *Console) Warn(format string, args ...any) {
	c.warn.Fprintf(c.Stdout, "⚠ "+format+"\n", args...)
}

// Command echoes a shell command line before it runs.
func (c *Console) Command(cmdline string) {
	c.command.Fprintln(c.Stdout, cmdline)
}

// Usage writes usage text verbatim (no trailing newline is added).
func (c *Console) Usage(text string) {
	c.info.Fprint(c.Stdout, text)
}

// Error prints "[ERROR]: <msg>" to stderr.
func (c *Console) Error(err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.fail.Fprintf(c.Stderr, "[ERROR]: %s\n", msg)
}

// Failf prints a "✗ " prefixed failure line to stderr. Unlike Error it is
// meant for progress output, not for the final status of a command.
func (c *Console) Failf(format string, args ...any) {
	c.fail.Fprintf(c.Stderr, "✗ "+format+"\n", args...)
}
