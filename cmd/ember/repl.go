package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/ember/internal/compiler"
	"github.com/funvibe/ember/internal/config"
	"github.com/funvibe/ember/internal/parser"
	"github.com/peterh/liner"
)

const (
	promptMain = "ember> "
	promptCont = "  ...> "
)

// cmdRepl reads statements and executes them in one persistent global
// context. Input continues on the next line while it parses as incomplete.
func cmdRepl(args []string, stdout, stderr io.Writer) int {
	fs, o := newFlags("repl", stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	cwd, _ := os.Getwd()
	cfg, err := o.load(cwd)
	if err != nil {
		return report(stderr, err)
	}
	s, err := newSession(cfg, cwd, stdout)
	if err != nil {
		return report(stderr, err)
	}
	defer s.Close()

	fmt.Fprintf(stdout, "Ember %s. Type :quit to exit.\n", config.Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	n := 0
	for {
		code, ok := readStatement(ln)
		if !ok {
			fmt.Fprintln(stdout)
			return exitOK
		}
		trimmed := strings.TrimSpace(code)
		switch {
		case trimmed == "":
			continue
		case trimmed == ":quit":
			return exitOK
		case trimmed == ":gc":
			freed := s.machine.Collect()
			fmt.Fprintf(stdout, "freed %d, %+v\n", freed, s.machine.Stats())
			continue
		case strings.HasPrefix(trimmed, ":"):
			fmt.Fprintln(stdout, "commands: :gc :quit")
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		n++
		bin, err := compiler.CompileSource(fmt.Sprintf("<repl:%d>", n), code)
		if err == nil {
			err = s.machine.Exec(context.Background(), 0, bin, 0)
		}
		if err != nil {
			report(stderr, err)
		}
	}
}

// readStatement reads lines until they parse or fail with something other
// than an unexpected end of input.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			return "", true
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if _, perr := parser.Parse(src); parser.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return config.HistoryFileName
	}
	return filepath.Join(home, config.HistoryFileName)
}
