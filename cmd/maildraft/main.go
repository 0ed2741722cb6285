// Command maildraft creates email drafts that attach the PDF, PPTX and
// XLSX files of a folder, from a CSV batch list or an interactive form.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/nhle/maildraft/internal/model"
)

// globalFlags are accepted before the subcommand name.
type globalFlags struct {
	configPath string
	logLevel   string
}

type command struct {
	summary string
	run     func(g globalFlags, args []string, stdout, stderr io.Writer) int
}

var commands = map[string]command{
	"batch":   {"create one draft per row of a UTF-16 CSV file", runBatch},
	"form":    {"open the interactive draft form", runForm},
	"history": {"list recent draft attempts from the journal", runHistory},
	"login":   {"store the IMAP password in the OS keyring", runLogin},
	"doctor":  {"check configuration, mail backend and journal", runDoctor},
	"whoami":  {"print the detected user email address", runWhoami},
	"init":    {"write a default configuration file", runInit},
}

// commandOrder is the order subcommands are listed in usage.
var commandOrder = []string{"batch", "form", "history", "login", "doctor", "whoami", "init"}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses global flags and dispatches to a subcommand, returning the
// process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	var g globalFlags
	fs := pflag.NewFlagSet("maildraft", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.StringVarP(&g.configPath, "config", "c", model.DefaultConfigPath(), "path to the YAML config file")
	fs.StringVar(&g.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	if fs.NArg() == 0 {
		usage(stdout, fs)
		return 0
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", name)
		usage(stderr, fs)
		return 2
	}

	return cmd.run(g, fs.Args()[1:], stdout, stderr)
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: maildraft [--config file] <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Global flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}

// newLogger builds the process logger writing to w at the configured level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
