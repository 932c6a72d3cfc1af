package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	lottieinline "github.com/kataras/lottie-inline"
	"github.com/kataras/lottie-inline/pkg/cliutil"

	"github.com/spf13/cobra"
)

const version = lottieinline.Version

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and returns the process exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	console := cliutil.NewConsoleWriters(stdout, stderr)

	var (
		inputPath  string
		outputPath string
		watch      bool
		ran        bool
	)

	rootCmd := &cobra.Command{
		Use:           "lottie-json-inline",
		Short:         "Embed the external images of a Lottie animation",
		Long:          "Rewrite a Lottie JSON file so that every external image asset is embedded as a base64 data URI.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ran = true
			opts := lottieinline.Options{
				InputPath:  inputPath,
				OutputPath: outputPath,
				Logger:     &cliLogger{console: console},
			}
			if watch {
				return runWatch(cmd.Context(), console, opts)
			}
			return run(console, opts)
		},
	}

	rootCmd.Flags().StringVarP(&inputPath, "input", "i", "", "Lottie JSON file to read (required)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "File to write the self-contained JSON to (required)")
	rootCmd.Flags().BoolVarP(&watch, "watch", "w", false, "Convert again whenever the input or one of its images changes")

	rootCmd.MarkFlagRequired("input")
	rootCmd.MarkFlagRequired("output")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			ran = true
			fmt.Fprintf(cmd.OutOrStdout(), "lottie-json-inline version %s\n", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	if args == nil {
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, _ []string) {
		cliutil.NewReporter(console, cmd.UsageString()).PrintUsage()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, err := rootCmd.ExecuteContextC(ctx)
	if err == nil {
		return cliutil.ExitOK
	}
	if !ran {
		err = &cliutil.ArgumentError{Err: err}
	}
	return cliutil.NewReporter(console, cmd.UsageString()).Fail(err, false)
}

func run(console *cliutil.Console, opts lottieinline.Options) error {
	result, err := lottieinline.Run(opts)
	if err != nil {
		return err
	}
	console.Info("result: %s", result.OutputPath)
	console.Info("Done.")
	return nil
}

func runWatch(ctx context.Context, console *cliutil.Console, opts lottieinline.Options) error {
	console.Info("Watching %s, press Ctrl+C to stop", opts.InputPath)
	return lottieinline.Watch(ctx, opts, func(result *lottieinline.Result, err error) {
		if err == nil {
			console.Info("result: %s", result.OutputPath)
		}
	})
}

// cliLogger implements lottieinline.Logger with colored terminal output.
type cliLogger struct {
	console *cliutil.Console
}

func (l *cliLogger) Infof(format string, args ...any) {
	l.console.Info(format, args...)
}

func (l *cliLogger) Warnf(format string, args ...any) {
	l.console.Warn(format, args...)
}

func (l *cliLogger) Errorf(format string, args ...any) {
	l.console.Failf(format, args...)
}
