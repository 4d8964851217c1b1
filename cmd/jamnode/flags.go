package main

import (
	"flag"
	"fmt"
	"os"
)

// options holds every flag this binary accepts (§6 CLI).
type options struct {
	Fuzz      string
	FuzzSet   bool
	Target    string
	TargetSet bool

	ProcessDirs string
	SkipNames   []string

	ProcessTrace string

	Preset string // "tiny" or "full" (§6 config constants)
}

// parseFlags parses CLI arguments into an options value. Returns the
// options, whether the caller should exit immediately, and the exit code.
func parseFlags(args []string) (options, bool, int) {
	var opts options
	fs := flag.NewFlagSet("jamnode", flag.ContinueOnError)

	fs.StringVar(&opts.Fuzz, "fuzz", "", "run as a fuzzer-protocol target over the given unix socket path")
	fs.StringVar(&opts.Target, "target", "", "run as a conformance-test target over the given unix socket path")
	fs.StringVar(&opts.ProcessDirs, "process-dirs", "", "replay every trace file under this directory")
	fs.StringVar(&opts.ProcessTrace, "process-trace", "", "replay a single trace file")
	fs.StringVar(&opts.Preset, "preset", "tiny", "protocol constant preset: tiny or full")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return opts, true, 2
	}

	opts.FuzzSet = isSet(fs, "fuzz")
	opts.TargetSet = isSet(fs, "target")
	opts.SkipNames = fs.Args()

	if *showVersion {
		fmt.Printf("jamnode %s (commit %s)\n", version, commit)
		return opts, true, 0
	}

	return opts, false, 0
}

// isSet reports whether name was explicitly passed on the command line,
// distinguishing an explicitly passed empty value ("--fuzz=") from the flag
// being entirely absent.
func isSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
