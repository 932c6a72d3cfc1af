package cliutil

// Reporter prints usage text and errors the way every command of this module
// does: usage in cyan on stdout, then a red "[ERROR]:" line on stderr.
//
// The usage text is injected at construction time, typically from
// cobra.Command.UsageString.
type Reporter struct {
	Console *Console
	Usage   string
}

// NewReporter returns a Reporter writing through console.
func NewReporter(console *Console, usage string) *Reporter {
	return &Reporter{Console: console, Usage: usage}
}

// PrintUsage writes the usage text. It returns ExitOK so help handlers can
// return it directly as the process status.
func (r *Reporter) PrintUsage() int {
	if r.Usage != "" {
		r.Console.Usage(r.Usage)
	}
	return ExitOK
}

// Fail reports err and returns ExitFailure. The usage text is printed first
// unless noUsage is set.
func (r *Reporter) Fail(err error, noUsage bool) int {
	if !noUsage {
		r.PrintUsage()
	}
	r.Console.Error(err)
	return ExitFailure
}
