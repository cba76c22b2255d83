package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/funvibe/ember/internal/config"
	"github.com/funvibe/ember/internal/diagnostics"
	"github.com/funvibe/ember/internal/modules"
	"github.com/funvibe/ember/internal/vm"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const appName = "ember"

// Exit codes.
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
	exitCompile = 3
)

var log = commonlog.GetLogger("ember.cli")

func main() {
	os.Exit(dispatch(os.Args[1:], os.Stdout, os.Stderr))
}

func dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return exitUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "run":
		return cmdRun(rest, stdout, stderr)
	case "repl":
		return cmdRepl(rest, stdout, stderr)
	case "check":
		return cmdCheck(rest, stdout, stderr)
	case "disasm":
		return cmdDisasm(rest, stdout, stderr)
	case "dump":
		return cmdDump(rest, stdout, stderr)
	case "modules":
		return cmdModules(rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "%s %s\n", appName, config.Version)
		return exitOK
	case "-h", "--help", "help":
		usage(stdout)
		return exitOK
	default:
		fmt.Fprintf(stderr, "%s: unknown command %q\n", appName, cmd)
		usage(stderr)
		return exitUsage
	}
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `Ember %s

Usage:
  %[2]s run <file.em> [args...]          Run a script.
  %[2]s repl                             Start the REPL.
  %[2]s check [-ast] <file.em>...        Compile files without running them.
  %[2]s disasm <file.em>                 Print the bytecode listing.
  %[2]s dump [-raw] <file.em> <out>      Write a bytecode dump ("-" for stdout).
  %[2]s modules put|get|list|rm ...      Manage the module store.
  %[2]s version                          Print the version.

Common flags:
  -v <n>         log verbosity (overrides the config file)
  -config <path> config file (default: nearest ember.yaml / ember.toml)
`, config.Version, appName)
}

// options are the flags every subcommand accepts.
type options struct {
	verbosity  int
	configPath string
}

func newFlags(name string, stderr io.Writer) (*flag.FlagSet, *options) {
	fs := flag.NewFlagSet(appName+" "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.IntVar(&o.verbosity, "v", -1, "log verbosity")
	fs.StringVar(&o.configPath, "config", "", "config file")
	return fs, o
}

// load reads the configuration relevant to dir and configures logging.
func (o *options) load(dir string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.configPath != "" {
		cfg, err = config.Load(o.configPath)
	} else {
		cfg, err = config.FindAndLoad(dir)
	}
	if err != nil {
		return nil, err
	}

	verbosity := cfg.Log.Verbosity
	if o.verbosity >= 0 {
		verbosity = o.verbosity
	}
	var path *string
	if cfg.Log.File != "" {
		path = &cfg.Log.File
	}
	commonlog.Configure(verbosity, path)
	log.Debugf("config loaded from %q", cfg.Dir)
	return cfg, nil
}

// session is a configured machine plus the resources behind its loader.
type session struct {
	machine *vm.Machine
	store   *modules.Store
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Errorf("closing module store: %s", err)
		}
	}
}

// newSession builds a machine whose imports search dir first, then the
// configured paths, then the module store.
func newSession(cfg *config.Config, dir string, stdout io.Writer) (*session, error) {
	m := vm.New()
	m.SetOutput(stdout)
	m.SetGCThreshold(cfg.GC.InitialThreshold)
	m.SetMaxCallDepth(cfg.MaxCallDepth)

	paths := append([]string{dir}, cfg.SearchPaths()...)
	chain := modules.Chain{modules.NewDirLoader(paths...)}
	s := &session{machine: m}
	if db := cfg.ModuleDBPath(); db != "" {
		store, err := modules.OpenStore(db)
		if err != nil {
			return nil, err
		}
		s.store = store
		chain = append(chain, store)
	}
	m.SetLoader(chain)
	log.Debugf("machine %s: search paths %v", m.ID(), paths)
	return s, nil
}

func scriptDir(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Dir(abs)
	}
	return filepath.Dir(path)
}

// useColor reports whether w is a terminal and NO_COLOR is unset.
func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func red(w io.Writer, s string) string {
	if !useColor(w) {
		return s
	}
	return "\x1b[31m" + s + "\x1b[0m"
}

// report prints err and returns the matching exit code.
func report(stderr io.Writer, err error) int {
	var ce *diagnostics.CompileError
	var se *vm.ScriptError
	switch {
	case errors.As(err, &ce):
		fmt.Fprintln(stderr, red(stderr, ce.Error()))
		return exitCompile
	case errors.As(err, &se):
		fmt.Fprintln(stderr, red(stderr, se.FormatTrace()))
		return exitRuntime
	default:
		fmt.Fprintln(stderr, red(stderr, fmt.Sprintf("%s: %s", appName, err)))
		return exitRuntime
	}
}
