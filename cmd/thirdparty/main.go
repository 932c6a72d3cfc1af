package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	lottieinline "github.com/kataras/lottie-inline"
	"github.com/kataras/lottie-inline/internal/logging"
	"github.com/kataras/lottie-inline/internal/manifest"
	"github.com/kataras/lottie-inline/pkg/cliutil"
	"github.com/kataras/lottie-inline/pkg/thirdparty"

	"github.com/spf13/cobra"
)

const version = lottieinline.Version

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// app carries the state shared by the subcommands of a single invocation.
type app struct {
	console *cliutil.Console
	logger  thirdparty.Logger
	stdout  io.Writer
	stderr  io.Writer
	ran     bool
}

// runE marks the invocation as past argument validation, so errors from fn
// are reported without usage text.
func (a *app) runE(fn func(cmd *cobra.Command) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		a.ran = true
		return fn(cmd)
	}
}

func execute(args []string, stdout, stderr io.Writer) int {
	a := &app{
		console: cliutil.NewConsoleWriters(stdout, stderr),
		logger:  logging.Printf{Logger: logging.New("thirdparty", logging.ProfileRuntime, stderr)},
		stdout:  stdout,
		stderr:  stderr,
	}

	rootCmd := &cobra.Command{
		Use:           "thirdparty",
		Short:         "Download, extract and install third-party dependencies",
		Long:          "Fetch archives, unpack them and run their install steps below a guard root, skipping work that is already done.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		a.installCommand(),
		a.downloadCommand(),
		a.extractCommand(),
		a.freePortCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, args []string) {
				a.ran = true
				fmt.Fprintf(cmd.OutOrStdout(), "thirdparty version %s\n", version)
			},
		},
	)

	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		cliutil.NewReporter(a.console, cmd.UsageString()).PrintUsage()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return cliutil.ExitOK
	}
	if !a.ran {
		err = &cliutil.ArgumentError{Err: err}
	}
	return cliutil.NewReporter(a.console, cmd.UsageString()).Fail(err, !cliutil.IsArgumentError(err))
}

func (a *app) installCommand() *cobra.Command {
	var (
		manifestPath string
		force        bool
		only         []string
		jobs         int
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install every dependency listed in a manifest",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.runE(func(cmd *cobra.Command) error {
		m, err := manifest.Load(manifestPath)
		if err != nil {
			return err
		}
		deps, err := m.Select(only)
		if err != nil {
			return &cliutil.ArgumentError{Err: err}
		}

		inst, err := a.installer(m.GuardRoot)
		if err != nil {
			return err
		}

		todo := pending(deps, force)
		if err := prefetch(cmd.Context(), inst, todo, force, jobs); err != nil {
			return err
		}

		for _, dep := range deps {
			installed, err := a.installDependency(cmd.Context(), inst, dep, force)
			if err != nil {
				return fmt.Errorf("%s: %w", dep.Name, err)
			}
			if installed {
				a.console.Info("%s: installed into %s", dep.Name, dep.Target)
			} else {
				a.console.Info("%s: up to date", dep.Name)
			}
		}
		a.console.Info("Done.")
		return nil
	})

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "TOML or YAML manifest listing the dependencies (required)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download and install again even when already done")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Comma-separated dependency names to install (default all)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", thirdparty.DefaultParallelDownloads, "Maximum number of concurrent downloads")
	cmd.MarkFlagRequired("manifest")
	return cmd
}

func (a *app) downloadCommand() *cobra.Command {
	var (
		url, output, guardRoot string
		force                  bool
	)

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download a file unless it is already present",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.runE(func(cmd *cobra.Command) error {
		inst, err := a.installer(guardRoot)
		if err != nil {
			return err
		}
		if !inst.Guard().Contains(output) {
			return cliutil.Argumentf("--output %s is not inside --guard-root %s", output, inst.Guard().Root())
		}

		fetched, err := inst.EnsureDownloaded(cmd.Context(), url, output, force)
		if err != nil {
			return err
		}
		if !fetched {
			a.console.Info("Already present: %s", output)
		}
		a.console.Info("result: %s", output)
		return nil
	})

	cmd.Flags().StringVarP(&url, "url", "u", "", "URL to fetch (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "File to write (required)")
	cmd.Flags().StringVar(&guardRoot, "guard-root", "", "Directory that every write and deletion must stay inside (required)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Download again even when the file exists")
	cmd.MarkFlagRequired("url")
	cmd.MarkFlagRequired("output")
	cmd.MarkFlagRequired("guard-root")
	return cmd
}

func (a *app) extractCommand() *cobra.Command {
	var archive, target, innerRoot, guardRoot string

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Unpack a tar archive into a new directory",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.runE(func(cmd *cobra.Command) error {
		inst, err := a.installer(guardRoot)
		if err != nil {
			return err
		}
		for _, p := range []string{archive, target} {
			if !inst.Guard().Contains(p) {
				return cliutil.Argumentf("%s is not inside --guard-root %s", p, inst.Guard().Root())
			}
		}

		if err := inst.EnsureExtracted(archive, target, innerRoot); err != nil {
			return err
		}
		a.console.Info("result: %s", target)
		return nil
	})

	cmd.Flags().StringVarP(&archive, "archive", "a", "", "Tar archive to unpack, optionally gzip or bzip2 compressed (required)")
	cmd.Flags().StringVarP(&target, "target", "t", "", "Directory to create (required)")
	cmd.Flags().StringVar(&innerRoot, "inner-root", "", "Top-level directory of the archive to install instead of the whole tree")
	cmd.Flags().StringVar(&guardRoot, "guard-root", "", "Directory that every write and deletion must stay inside (required)")
	cmd.MarkFlagRequired("archive")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("guard-root")
	return cmd
}

func (a *app) freePortCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free-port",
		Short: "Print a TCP port that is currently free",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.runE(func(cmd *cobra.Command) error {
		port, err := cliutil.FreePort()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), port)
		return nil
	})
	return cmd
}

func (a *app) installer(guardRoot string) (*thirdparty.Installer, error) {
	if strings.TrimSpace(guardRoot) == "" {
		return nil, &cliutil.ArgumentError{Err: thirdparty.ErrNoGuardRoot}
	}
	guard, err := thirdparty.NewGuard(guardRoot)
	if err != nil {
		return nil, err
	}
	return thirdparty.NewInstaller(thirdparty.Config{Guard: guard, Logger: a.logger})
}
