package cliutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
)

// Shell executes command lines through the platform shell
// ("sh -c" on Unix, "cmd /C" on Windows).
type Shell struct {
	// Console echoes commands when display is requested. Nil disables echoing.
	Console *Console
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the current process environment.
	Env []string
	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// NewShell returns a Shell that echoes through console.
func NewShell(console *Console) *Shell {
	return &Shell{Console: console}
}

// Run executes command with its output attached to the terminal.
// A non-zero exit status is returned as a *CommandError.
func (s *Shell) Run(ctx context.Context, command string, display bool) error {
	cmd := s.prepare(ctx, command, display)
	cmd.Stdout = s.stdout()
	return commandError(command, cmd.Run())
}

// RunCapture executes command and returns its standard output as text.
// When check is false the output is returned with a nil error whatever the
// exit status; a command that cannot be started is always an error.
func (s *Shell) RunCapture(ctx context.Context, command string, display, check bool) (string, error) {
	cmd := s.prepare(ctx, command, display)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	var exitErr *exec.ExitError
	if !check && errors.As(err, &exitErr) {
		return stdout.String(), nil
	}
	return stdout.String(), commandError(command, err)
}

func (s *Shell) prepare(ctx context.Context, command string, display bool) *exec.Cmd {
	if display && s.Console != nil {
		s.Console.Command(command)
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd", "/C", command)
	} else {
		cmd = exec.CommandContext(ctx, "sh", "-c", command)
	}
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = append(os.Environ(), s.Env...)
	}
	cmd.Stdin = os.Stdin
	cmd.Stderr = s.stderr()
	return cmd
}

func (s *Shell) stdout() io.Writer {
	if s.Stdout != nil {
		return s.Stdout
	}
	return os.Stdout
}

func (s *Shell) stderr() io.Writer {
	if s.Stderr != nil {
		return s.Stderr
	}
	return os.Stderr
}

func commandError(command string, err error) error {
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Command: command, ExitCode: exitErr.ExitCode(), Err: err}
	}
	return &CommandError{Command: command, ExitCode: 127, Err: err}
}
