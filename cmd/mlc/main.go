// mlc combines precompiled units into one Lua 5.1 binary chunk.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/mlc/manifest"
	"github.com/chazu/mlc/pkg/bytecode"
	"github.com/chazu/mlc/pkg/unit"

	_ "github.com/tliron/commonlog/simple"
)

const (
	progName = "mlc"
	version  = "mlc 0.1.0 (Lua 5.1 bytecode)"
)

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options is the parsed command line merged with the manifest.
type options struct {
	output    string
	list      bool
	parseOnly bool
	strip     bool
	version   bool
	verbosity int
	logPath   string
	inputs    []string
}

// run executes one driver invocation and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "%s: %v\n", progName, err)
		}
		return 1
	}

	if opts.version {
		fmt.Fprintln(stdout, version)
		if len(opts.inputs) == 0 {
			return 0
		}
	}
	if len(opts.inputs) == 0 {
		fmt.Fprintf(stderr, "%s: no input files given\n", progName)
		return 1
	}

	var logPath *string
	if opts.logPath != "" {
		logPath = &opts.logPath
	}
	commonlog.Configure(opts.verbosity, logPath)
	log := commonlog.NewKeyValueLogger(commonlog.GetLogger("mlc"), "build", uuid.New().String())

	if err := build(opts, stdin, stdout, log); err != nil {
		log.Errorf("%v", err)
		fmt.Fprintf(stderr, "%s: %v\n", progName, err)
		return 1
	}
	return 0
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(stderr)

	output := fs.String("o", manifest.DefaultOutput, "Output file (\"-\" for stdout)")
	list := fs.Bool("l", false, "List the combined bytecode on stdout")
	parseOnly := fs.Bool("p", false, "Load and combine only, do not write a chunk")
	strip := fs.Bool("s", false, "Strip debug information")
	showVersion := fs.Bool("v", false, "Print version information")
	configDir := fs.String("config", "", "Directory containing mlc.toml (default: search upward from .)")
	verbosity := fs.Int("verbose", 0, "Log verbosity (-4 silent .. 2 debug)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: mlc [options] [units...]\n\n")
		fmt.Fprintf(stderr, "Combines precompiled units into one Lua 5.1 binary chunk.\n")
		fmt.Fprintf(stderr, "With no units, the [build] inputs of mlc.toml are used.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  mlc a.luo b.luo           # write metalua.out\n")
		fmt.Fprintf(stderr, "  mlc -s -o app.luac *.luo  # stripped chunk\n")
		fmt.Fprintf(stderr, "  mlc -o - - < a.luo        # stdin to stdout\n")
		fmt.Fprintf(stderr, "  mlc -l -p a.luo b.luo     # list without writing\n")
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errUsage
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	var m *manifest.Manifest
	var err error
	if *configDir != "" {
		m, err = manifest.Load(*configDir)
	} else {
		m, err = manifest.FindAndLoad(".")
	}
	if err != nil {
		return nil, err
	}

	opts := &options{
		output:    *output,
		list:      *list,
		parseOnly: *parseOnly,
		strip:     *strip,
		version:   *showVersion,
		verbosity: *verbosity,
		inputs:    fs.Args(),
	}

	// Flags win over the manifest.
	if m != nil {
		if !set["o"] {
			opts.output = m.OutputPath()
		}
		if m.Build.Strip {
			opts.strip = true
		}
		if !set["verbose"] {
			opts.verbosity = m.Log.Verbosity
		}
		opts.logPath = m.Log.Path
		if len(opts.inputs) == 0 {
			opts.inputs = m.InputPaths()
		}
	}
	return opts, nil
}

// build loads every unit, combines them and writes the chunk.
func build(opts *options, stdin io.Reader, stdout io.Writer, log commonlog.Logger) error {
	arena := bytecode.NewArena()
	protos := make([]bytecode.ProtoID, 0, len(opts.inputs))
	for _, in := range opts.inputs {
		var id bytecode.ProtoID
		var err error
		if in == "-" {
			id, err = unit.LoadReader(stdin, "stdin", arena)
		} else {
			id, err = unit.Load(in, arena)
		}
		if err != nil {
			return err
		}
		protos = append(protos, id)
	}
	log.Infof("loaded %d unit(s)", len(protos))

	root, err := bytecode.Combine(arena, protos)
	if err != nil {
		return err
	}
	if opts.list {
		listing, err := arena.Disassemble(root)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(stdout, listing); err != nil {
			return fmt.Errorf("cannot write stdout: %w", err)
		}
	}
	if opts.parseOnly {
		log.Info("parse only, no chunk written")
		return nil
	}

	return writeChunk(arena, root, opts, stdout, log)
}

func writeChunk(a *bytecode.Arena, root bytecode.ProtoID, opts *options, stdout io.Writer, log commonlog.Logger) error {
	name := opts.output
	var sink io.Writer
	var closer io.Closer
	if name == "-" {
		name = "stdout"
		sink = stdout
	} else {
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("cannot open %s: %w", name, pathErrCause(err))
		}
		sink, closer = f, f
	}

	w := bufio.NewWriter(sink)
	err := bytecode.Dump(a, root, w, opts.strip)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return fmt.Errorf("cannot write %s: %w", name, err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("cannot close %s: %w", name, err)
		}
	}

	log.Infof("wrote %s (strip=%t)", name, opts.strip)
	return nil
}

// pathErrCause drops the operation and path of an *fs.PathError, which the
// message already names.
func pathErrCause(err error) error {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Err
	}
	return err
}
