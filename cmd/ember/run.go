package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"

	"github.com/funvibe/ember/internal/ast"
	"github.com/funvibe/ember/internal/bytecode"
	"github.com/funvibe/ember/internal/compiler"
	"github.com/funvibe/ember/internal/parser"
	"github.com/funvibe/ember/internal/vm"
	"golang.org/x/sync/errgroup"
)

func compileFile(path string) (*bytecode.Binary, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compiler.CompileSource(path, string(src))
}

func parseTree(path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	root, err := parser.Parse(string(src))
	if err != nil {
		return "", err
	}
	return ast.Print(root), nil
}

// cmdRun runs a script. Arguments after the file are bound to the global
// `args` as a list of strings.
func cmdRun(args []string, stdout, stderr io.Writer) int {
	fs, o := newFlags("run", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(stderr, "usage: %s run <file.em> [args...]\n", appName)
		return exitUsage
	}
	file := fs.Arg(0)
	dir := scriptDir(file)

	cfg, err := o.load(dir)
	if err != nil {
		return report(stderr, err)
	}
	bin, err := compileFile(file)
	if err != nil {
		return report(stderr, err)
	}
	s, err := newSession(cfg, dir, stdout)
	if err != nil {
		return report(stderr, err)
	}
	defer s.Close()

	m := s.machine
	argv := make([]vm.Value, 0, fs.NArg()-1)
	for _, a := range fs.Args()[1:] {
		argv = append(argv, vm.String(a))
	}
	if err := m.Define(m.Global(), "args", m.NewArray(argv)); err != nil {
		return report(stderr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := m.Exec(ctx, 0, bin, 0); err != nil {
		return report(stderr, err)
	}
	log.Debugf("machine %s finished: %+v", m.ID(), m.Stats())
	return exitOK
}

// cmdCheck compiles every file in parallel and reports all failures.
func cmdCheck(args []string, stdout, stderr io.Writer) int {
	fs, o := newFlags("check", stderr)
	printAST := fs.Bool("ast", false, "print the parsed tree of each file")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	files := fs.Args()
	if len(files) == 0 {
		fmt.Fprintf(stderr, "usage: %s check <file.em>...\n", appName)
		return exitUsage
	}
	if _, err := o.load("."); err != nil {
		return report(stderr, err)
	}

	errs := make([]error, len(files))
	trees := make([]string, len(files))
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for i, file := range files {
		g.Go(func() error {
			if _, errs[i] = compileFile(file); errs[i] == nil && *printAST {
				trees[i], errs[i] = parseTree(file)
			}
			return nil
		})
	}
	_ = g.Wait()

	code := exitOK
	for i, err := range errs {
		if err == nil {
			fmt.Fprintf(stdout, "ok   %s\n", files[i])
			if *printAST {
				fmt.Fprintln(stdout, trees[i])
			}
			continue
		}
		if c := report(stderr, err); c > code {
			code = c
		}
	}
	return code
}

func cmdDisasm(args []string, stdout, stderr io.Writer) int {
	fs, o := newFlags("disasm", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "usage: %s disasm <file.em>\n", appName)
		return exitUsage
	}
	if _, err := o.load(scriptDir(fs.Arg(0))); err != nil {
		return report(stderr, err)
	}
	bin, err := compileFile(fs.Arg(0))
	if err != nil {
		return report(stderr, err)
	}
	fmt.Fprint(stdout, bytecode.Disassemble(bin))
	return exitOK
}

func cmdDump(args []string, stdout, stderr io.Writer) int {
	fs, o := newFlags("dump", stderr)
	raw := fs.Bool("raw", false, "write the raw instruction stream instead of CBOR")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 2 {
		fmt.Fprintf(stderr, "usage: %s dump [-raw] <file.em> <out>\n", appName)
		return exitUsage
	}
	if _, err := o.load(scriptDir(fs.Arg(0))); err != nil {
		return report(stderr, err)
	}
	bin, err := compileFile(fs.Arg(0))
	if err != nil {
		return report(stderr, err)
	}

	w := stdout
	if out := fs.Arg(1); out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return report(stderr, err)
		}
		defer f.Close()
		w = f
	}
	write := bytecode.WriteDump
	if *raw {
		write = bytecode.WriteRaw
	}
	if err := write(w, bin); err != nil {
		return report(stderr, err)
	}
	return exitOK
}
